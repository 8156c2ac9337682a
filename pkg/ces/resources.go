package ces

import (
	"context"
	"fmt"
	"time"
)

// Account is a CES account or sub-account.
type Account struct{ *Object }

// Term is an academic term.
type Term struct{ *Object }

// User is an account user.
type User struct{ *Object }

// Metadata is a name/value pair attached to a user or course.
type Metadata struct{ *Object }

// Node is an element of the account hierarchy.
type Node struct{ *Object }

// NodeMapper maps records onto hierarchy nodes.
type NodeMapper struct{ *Object }

// Survey is a survey definition.
type Survey struct{ *Object }

// Question belongs to a survey.
type Question struct{ *Object }

// Project is an evaluation project.
type Project struct{ *Object }

// ProjectSurvey is a survey attached to a project.
type ProjectSurvey struct{ *Object }

// ProjectCourse is a course taking part in a project.
type ProjectCourse struct{ *Object }

// Respondent answered a project survey.
type Respondent struct{ *Object }

// NonRespondent has not answered a project survey.
type NonRespondent struct{ *Object }

// ResponseRate is a response-rate row of a project or survey.
type ResponseRate struct{ *Object }

// RawData is one row of a project's raw response export.
type RawData struct{ *Object }

// Course is a course section.
type Course struct{ *Object }

// WrapAccount views o as an Account.
func WrapAccount(o *Object) *Account {
	return &Account{o}
}

// WrapTerm views o as a Term.
func WrapTerm(o *Object) *Term {
	return &Term{o}
}

// WrapUser views o as a User.
func WrapUser(o *Object) *User {
	return &User{o}
}

// WrapMetadata views o as a Metadata.
func WrapMetadata(o *Object) *Metadata {
	return &Metadata{o}
}

// WrapNode views o as a Node.
func WrapNode(o *Object) *Node {
	return &Node{o}
}

// WrapNodeMapper views o as a NodeMapper.
func WrapNodeMapper(o *Object) *NodeMapper {
	return &NodeMapper{o}
}

// WrapSurvey views o as a Survey.
func WrapSurvey(o *Object) *Survey {
	return &Survey{o}
}

// WrapQuestion views o as a Question.
func WrapQuestion(o *Object) *Question {
	return &Question{o}
}

// WrapProject views o as a Project.
func WrapProject(o *Object) *Project {
	return &Project{o}
}

// WrapProjectSurvey views o as a ProjectSurvey.
func WrapProjectSurvey(o *Object) *ProjectSurvey {
	return &ProjectSurvey{o}
}

// WrapProjectCourse views o as a ProjectCourse.
func WrapProjectCourse(o *Object) *ProjectCourse {
	return &ProjectCourse{o}
}

// WrapRespondent views o as a Respondent.
func WrapRespondent(o *Object) *Respondent {
	return &Respondent{o}
}

// WrapNonRespondent views o as a NonRespondent.
func WrapNonRespondent(o *Object) *NonRespondent {
	return &NonRespondent{o}
}

// WrapResponseRate views o as a ResponseRate.
func WrapResponseRate(o *Object) *ResponseRate {
	return &ResponseRate{o}
}

// WrapRawData views o as a RawData.
func WrapRawData(o *Object) *RawData {
	return &RawData{o}
}

// WrapCourse views o as a Course.
func WrapCourse(o *Object) *Course {
	return &Course{o}
}

// WrapObject keeps the generic Object.
func WrapObject(o *Object) *Object { return o }

// AncestorAs finds the nearest ancestor of kind and wraps it.
func AncestorAs[T any](o *Object, kind Kind, wrap Wrapper[T]) (T, error) {
	var zero T

	ancestor, err := o.Ancestor(kind)
	if err != nil {
		return zero, err
	}

	return wrap(ancestor), nil
}

// ParentProject returns the project this object was listed from.
func (o *Object) ParentProject() (*Project, error) {
	return AncestorAs(o, KindProject, WrapProject)
}

// ParentSurvey returns the survey this object was listed from.
func (o *Object) ParentSurvey() (*Survey, error) {
	return AncestorAs(o, KindSurvey, WrapSurvey)
}

// ParentCourse returns the course this object was listed from.
func (o *Object) ParentCourse() (*Course, error) {
	return AncestorAs(o, KindCourse, WrapCourse)
}

// Title returns the project title.
func (p *Project) Title() (string, error) {
	return p.GetString("title")
}

// StartDate returns the project start date.
func (p *Project) StartDate() (time.Time, error) {
	return p.GetTime("startDate")
}

// EndDate returns the project end date.
func (p *Project) EndDate() (time.Time, error) {
	return p.GetTime("endDate")
}

// Surveys lists the surveys of the project.
func (p *Project) Surveys(opts *ListOptions) (*Collection[*ProjectSurvey], error) {
	return listChildren(p.Object, EndpointProjectSurveys, WrapProjectSurvey, "projectId", opts)
}

// Courses lists the courses of the project.
func (p *Project) Courses(opts *ListOptions) (*Collection[*ProjectCourse], error) {
	return listChildren(p.Object, EndpointProjectCourses, WrapProjectCourse, "projectId", opts)
}

// Course returns one course of the project.
func (p *Project) Course(ctx context.Context, courseID int64) (*ProjectCourse, error) {
	courses, err := listChildren(p.Object, EndpointProjectCourse, WrapProjectCourse, "projectId", nil, courseID)
	if err != nil {
		return nil, err
	}

	course, err := courses.One(ctx)
	if err != nil {
		return nil, fmt.Errorf("project course %d: %w", courseID, err)
	}

	return course, nil
}

// Respondents lists the users who responded.
func (p *Project) Respondents(opts *ListOptions) (*Collection[*Respondent], error) {
	return listChildren(p.Object, EndpointProjectRespondents, WrapRespondent, "projectId", opts)
}

// NonRespondents lists the users who have not responded.
func (p *Project) NonRespondents(opts *ListOptions) (*Collection[*NonRespondent], error) {
	return listChildren(p.Object, EndpointProjectNonRespondents, WrapNonRespondent, "projectId", opts)
}

// ResponseRate lists the response rates of the project.
func (p *Project) ResponseRate(opts *ListOptions) (*Collection[*ResponseRate], error) {
	return listChildren(p.Object, EndpointProjectResponseRate, WrapResponseRate, "projectId", opts)
}

// RawData lists the raw response rows of the project.
func (p *Project) RawData(opts *ListOptions) (*Collection[*RawData], error) {
	return listChildren(p.Object, EndpointProjectRawData, WrapRawData, "projectId", opts)
}

// Projects lists the projects the course takes part in.
func (c *Course) Projects(opts *ListOptions) (*Collection[*Project], error) {
	return listChildren(c.Object, EndpointCourseProjects, WrapProject, "courseId", opts)
}

// Metadata fetches the metadata of the course.
func (c *Course) Metadata(ctx context.Context) (*Metadata, error) {
	if c.session == nil {
		return nil, fmt.Errorf("%s: %w", EndpointCourseMetadata, ErrDetached)
	}

	id, err := c.ID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EndpointCourseMetadata, err)
	}

	return Fetch(ctx, c.session, EndpointCourseMetadata, WrapMetadata, c.Object, nil, id)
}

// Questions lists the questions of the survey.
func (s *Survey) Questions(opts *ListOptions) (*Collection[*Question], error) {
	return listChildren(s.Object, EndpointSurveyQuestions, WrapQuestion, "surveyId", opts)
}

// ResponseRate lists the response rates of the survey.
func (s *Survey) ResponseRate(opts *ListOptions) (*Collection[*ResponseRate], error) {
	return listChildren(s.Object, EndpointSurveyResponseRate, WrapResponseRate, "surveyId", opts)
}

// ProjectListOptions filters the project listing server side.
type ProjectListOptions struct {
	ListOptions

	ProjectType        *int
	ProjectStatus      *int
	EndedSince         *time.Time
	IncludeSubaccounts *bool
}

// Options returns the generic list options.
func (o *ProjectListOptions) Options() *ListOptions {
	if o == nil {
		return nil
	}

	out := o.ListOptions
	out.Params = P(
		"projectType", o.ProjectType,
		"projectStatus", o.ProjectStatus,
		"endedSince", o.EndedSince,
		"includeSubaccounts", o.IncludeSubaccounts,
	).Merge(o.Params)

	return &out
}

// UserListOptions filters the user listing server side.
type UserListOptions struct {
	ListOptions

	UserTypes          string
	Username           string
	UserID             *int64
	IncludeSubaccounts *bool
}

// Options returns the generic list options.
func (o *UserListOptions) Options() *ListOptions {
	if o == nil {
		return nil
	}

	out := o.ListOptions
	out.Params = P(
		"userTypes", nonEmpty(o.UserTypes),
		"username", nonEmpty(o.Username),
		"userId", o.UserID,
		"includeSubaccounts", o.IncludeSubaccounts,
	).Merge(o.Params)

	return &out
}

// ProjectCreateRequest is the form body of a new project.
type ProjectCreateRequest struct {
	AccountID     *int64    `validate:"omitempty,gt=0"`
	Title         string    `validate:"omitempty,max=255"`
	ProjectType   int       `validate:"gte=0"`
	ProjectStatus int       `validate:"gte=0"`
	MainSurveyID  *int64    `validate:"omitempty,gt=0"`
	TermID        *int64    `validate:"omitempty,gt=0"`
	StartDate     time.Time `validate:"required"`
	EndDate       time.Time `validate:"required,gtfield=StartDate"`
}

// Params returns the form fields.
func (r *ProjectCreateRequest) Params() Params {
	return P(
		"accountId", r.AccountID,
		"title", nonEmpty(r.Title),
		"projectType", r.ProjectType,
		"projectStatus", r.ProjectStatus,
		"mainSurveyId", r.MainSurveyID,
		"termId", r.TermID,
		"startDate", r.StartDate,
		"endDate", r.EndDate,
	)
}

// AdminUserRequest creates or updates an administrator.
type AdminUserRequest struct {
	UserID    *int64   `json:"userId,omitempty"`
	AccountID *int64   `json:"accountId,omitempty"`
	Username  string   `json:"username"            validate:"required"`
	UserType  int      `json:"userType"`
	UserTypes []int    `json:"userTypes"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"               validate:"omitempty,email"`
	Password  string   `json:"password,omitempty"`
	Roles     []int    `json:"roles"`
	NodePath  []string `json:"nodePath"`
}

// Params returns the form fields. List fields are sent as key[] entries.
func (r *AdminUserRequest) Params() Params {
	return P(
		"userId", r.UserID,
		"accountId", r.AccountID,
		"username", r.Username,
		"userType", r.UserType,
		"userTypes", r.UserTypes,
		"firstName", r.FirstName,
		"lastName", r.LastName,
		"email", r.Email,
		"password", nonEmpty(r.Password),
		"roles", r.Roles,
		"nodePath", r.NodePath,
	)
}

// NodeRequest creates or updates a hierarchy node.
type NodeRequest struct {
	ParentID  int64
	AccountID int64
	Name      string `validate:"required"`
	Level     *int
	NodePath  string
}

// Params returns the form fields. id is included for updates.
func (r *NodeRequest) Params(id *int64) Params {
	return P(
		"id", id,
		"parentId", r.ParentID,
		"accountId", r.AccountID,
		"level", r.Level,
		"name", r.Name,
		"nodePath", nonEmpty(r.NodePath),
	)
}

// MetadataItem is one entry of a metadata batch.
type MetadataItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func nonEmpty(s string) interface{} {
	if s == "" {
		return nil
	}

	return s
}
