package client

import (
	"context"
	"fmt"

	"github.com/go-playground/validator"

	"github.com/fivetwenty-io/ces-client/pkg/ces"
)

// ProjectsClient implements ces.ProjectsClient.
type ProjectsClient struct {
	session  *ces.Session
	validate *validator.Validate
}

// NewProjectsClient creates a new projects client.
func NewProjectsClient(session *ces.Session) *ProjectsClient {
	return &ProjectsClient{session: session, validate: validator.New()}
}

// ListProjects implements ces.ProjectsClient.ListProjects.
func (c *ProjectsClient) ListProjects(opts *ces.ProjectListOptions) (*ces.Collection[*ces.Project], error) {
	return ces.List(c.session, ces.EndpointProjects, ces.WrapProject, nil, opts.Options())
}

// GetProject implements ces.ProjectsClient.GetProject.
func (c *ProjectsClient) GetProject(ctx context.Context, projectID int64) (*ces.Project, error) {
	project, err := ces.Fetch(ctx, c.session, ces.EndpointProject, ces.WrapProject, nil, nil, projectID)
	if err != nil {
		return nil, fmt.Errorf("getting project %d: %w", projectID, err)
	}

	return project, nil
}

// CreateProject implements ces.ProjectsClient.CreateProject.
func (c *ProjectsClient) CreateProject(ctx context.Context, req *ces.ProjectCreateRequest) (*ces.Project, error) {
	if req == nil {
		return nil, fmt.Errorf("creating project: %w", ces.ErrInvalidRequest)
	}

	err := c.validate.Struct(req)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w: %w", ces.ErrInvalidRequest, err)
	}

	project, err := ces.Fetch(ctx, c.session, ces.EndpointProjectCreate, ces.WrapProject, nil, &ces.Call{Body: req.Params()})
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	return project, nil
}
