package client

import (
	"context"
	"fmt"

	"github.com/go-playground/validator"

	"github.com/fivetwenty-io/ces-client/pkg/ces"
)

// UsersClient implements ces.UsersClient.
type UsersClient struct {
	session  *ces.Session
	validate *validator.Validate
}

// NewUsersClient creates a new users client.
func NewUsersClient(session *ces.Session) *UsersClient {
	return &UsersClient{session: session, validate: validator.New()}
}

// UserHasInProgressSurvey implements ces.UsersClient.UserHasInProgressSurvey.
func (c *UsersClient) UserHasInProgressSurvey(ctx context.Context, username string) (bool, error) {
	result, err := c.session.Check(ctx, ces.EndpointUserInProgressSurvey, &ces.Call{Query: ces.P("username", username)})
	if err != nil {
		return false, fmt.Errorf("checking in-progress surveys for %s: %w", username, err)
	}

	return result, nil
}

// UserHasGradeBlock implements ces.UsersClient.UserHasGradeBlock.
func (c *UsersClient) UserHasGradeBlock(ctx context.Context, username string) (bool, error) {
	result, err := c.session.Check(ctx, ces.EndpointUserGradeBlock, &ces.Call{Query: ces.P("username", username)})
	if err != nil {
		return false, fmt.Errorf("checking grade block for %s: %w", username, err)
	}

	return result, nil
}

// ListUsers implements ces.UsersClient.ListUsers.
func (c *UsersClient) ListUsers(opts *ces.UserListOptions) (*ces.Collection[*ces.User], error) {
	return ces.List(c.session, ces.EndpointUsers, ces.WrapUser, nil, opts.Options())
}

// ListUserMetadata implements ces.UsersClient.ListUserMetadata.
func (c *UsersClient) ListUserMetadata(username string, opts *ces.ListOptions) (*ces.Collection[*ces.Metadata], error) {
	merged := &ces.ListOptions{}
	if opts != nil {
		*merged = *opts
	}

	merged.Params = ces.P("username", username).Merge(merged.Params)

	return ces.List(c.session, ces.EndpointUserMetadata, ces.WrapMetadata, nil, merged)
}

// SaveUserMetadata implements ces.UsersClient.SaveUserMetadata.
func (c *UsersClient) SaveUserMetadata(ctx context.Context, username, name, value string) (*ces.Metadata, error) {
	call := &ces.Call{
		Query: ces.P("username", username),
		Body:  ces.P("name", name, "value", value),
	}

	metadata, err := ces.Fetch(ctx, c.session, ces.EndpointUserMetadataSave, ces.WrapMetadata, nil, call)
	if err != nil {
		return nil, fmt.Errorf("saving metadata %s for %s: %w", name, username, err)
	}

	return metadata, nil
}

// SaveUserMetadataBatch implements ces.UsersClient.SaveUserMetadataBatch.
func (c *UsersClient) SaveUserMetadataBatch(ctx context.Context, username string, items []ces.MetadataItem) (*ces.Metadata, error) {
	if items == nil {
		items = []ces.MetadataItem{}
	}

	call := &ces.Call{
		Query: ces.P("username", username),
		JSON:  map[string]interface{}{"metadata": items},
	}

	metadata, err := ces.Fetch(ctx, c.session, ces.EndpointUserMetadataBatch, ces.WrapMetadata, nil, call)
	if err != nil {
		return nil, fmt.Errorf("saving metadata batch for %s: %w", username, err)
	}

	return metadata, nil
}

// RemoveUserMetadata implements ces.UsersClient.RemoveUserMetadata.
func (c *UsersClient) RemoveUserMetadata(ctx context.Context, username, name string) error {
	_, err := c.session.Exec(ctx, ces.EndpointUserMetadataRemove, &ces.Call{Query: ces.P("username", username, "name", name)})
	if err != nil {
		return fmt.Errorf("removing metadata %s for %s: %w", name, username, err)
	}

	return nil
}

// CreateAdminUser implements ces.UsersClient.CreateAdminUser.
func (c *UsersClient) CreateAdminUser(ctx context.Context, req *ces.AdminUserRequest) (*ces.User, error) {
	return c.sendAdminUser(ctx, ces.EndpointAdminUserCreate, req)
}

// UpdateAdminUser implements ces.UsersClient.UpdateAdminUser.
func (c *UsersClient) UpdateAdminUser(ctx context.Context, req *ces.AdminUserRequest) (*ces.User, error) {
	return c.sendAdminUser(ctx, ces.EndpointAdminUserUpdate, req)
}

func (c *UsersClient) sendAdminUser(ctx context.Context, name ces.EndpointName, req *ces.AdminUserRequest) (*ces.User, error) {
	if req == nil {
		return nil, fmt.Errorf("%s: %w", name, ces.ErrInvalidRequest)
	}

	err := c.validate.Struct(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ces.ErrInvalidRequest, err)
	}

	user, err := ces.Fetch(ctx, c.session, name, ces.WrapUser, nil, &ces.Call{Body: req.Params()})
	if err != nil {
		return nil, fmt.Errorf("saving administrator %s: %w", req.Username, err)
	}

	return user, nil
}
