package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/ces-client/pkg/ces"
)

// CoursesClient implements ces.CoursesClient.
type CoursesClient struct {
	session *ces.Session
}

// NewCoursesClient creates a new courses client.
func NewCoursesClient(session *ces.Session) *CoursesClient {
	return &CoursesClient{session: session}
}

// ListCourses implements ces.CoursesClient.ListCourses.
func (c *CoursesClient) ListCourses(opts *ces.ListOptions) (*ces.Collection[*ces.Course], error) {
	return ces.List(c.session, ces.EndpointCourses, ces.WrapCourse, nil, opts)
}

// GetCourse implements ces.CoursesClient.GetCourse.
func (c *CoursesClient) GetCourse(ctx context.Context, courseID int64) (*ces.Course, error) {
	course, err := ces.Fetch(ctx, c.session, ces.EndpointCourse, ces.WrapCourse, nil, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("getting course %d: %w", courseID, err)
	}

	return course, nil
}

// GetCourseByUniqueID implements ces.CoursesClient.GetCourseByUniqueID. The
// API answers with a one-record page.
func (c *CoursesClient) GetCourseByUniqueID(ctx context.Context, uniqueID string) (*ces.Course, error) {
	course, err := ces.Fetch(ctx, c.session, ces.EndpointCourses, ces.WrapCourse, nil, &ces.Call{Query: ces.P("uniqueId", uniqueID)})
	if err != nil {
		return nil, fmt.Errorf("getting course %q: %w", uniqueID, err)
	}

	return course, nil
}
