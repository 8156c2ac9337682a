package ces

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
)

// EndpointName identifies an entry of the endpoint table.
type EndpointName string

// Endpoint names.
const (
	EndpointAccount               EndpointName = "account.get"
	EndpointSubaccounts           EndpointName = "account.subaccounts"
	EndpointTerms                 EndpointName = "terms.list"
	EndpointUserInProgressSurvey  EndpointName = "users.hasInProgressSurvey"
	EndpointUserGradeBlock        EndpointName = "users.hasGradeBlock"
	EndpointUsers                 EndpointName = "users.list"
	EndpointUserMetadata          EndpointName = "users.metadata.list"
	EndpointUserMetadataSave      EndpointName = "users.metadata.save"
	EndpointUserMetadataBatch     EndpointName = "users.metadata.batch"
	EndpointUserMetadataRemove    EndpointName = "users.metadata.remove"
	EndpointAdminUserCreate       EndpointName = "users.administrator.create"
	EndpointAdminUserUpdate       EndpointName = "users.administrator.update"
	EndpointSurveys               EndpointName = "surveys.list"
	EndpointSurvey                EndpointName = "surveys.get"
	EndpointSurveyQuestions       EndpointName = "surveys.questions"
	EndpointSurveyResponseRate    EndpointName = "surveys.responseRate"
	EndpointProjects              EndpointName = "projects.list"
	EndpointProject               EndpointName = "projects.get"
	EndpointProjectCreate         EndpointName = "projects.create"
	EndpointProjectSurveys        EndpointName = "projects.surveys"
	EndpointProjectCourses        EndpointName = "projects.courses"
	EndpointProjectCourse         EndpointName = "projects.course"
	EndpointProjectRespondents    EndpointName = "projects.respondents"
	EndpointProjectNonRespondents EndpointName = "projects.nonRespondents"
	EndpointProjectResponseRate   EndpointName = "projects.responseRate"
	EndpointProjectRawData        EndpointName = "projects.rawData"
	EndpointCourses               EndpointName = "courses.list"
	EndpointCourse                EndpointName = "courses.get"
	EndpointCourseProjects        EndpointName = "courses.projects"
	EndpointCourseMetadata        EndpointName = "courses.metadata"
	EndpointNodes                 EndpointName = "nodes.list"
	EndpointNode                  EndpointName = "nodes.get"
	EndpointNodeCreate            EndpointName = "nodes.create"
	EndpointNodeUpdate            EndpointName = "nodes.update"
	EndpointNodeDelete            EndpointName = "nodes.delete"
	EndpointNodeMapper            EndpointName = "nodemapper.get"
	EndpointNodeMapperCreate      EndpointName = "nodemapper.create"
	EndpointNodeMapperUpdate      EndpointName = "nodemapper.update"
	EndpointNodeMapperDelete      EndpointName = "nodemapper.delete"
)

// Endpoint describes one API operation. Path placeholders in braces are
// filled positionally by Descriptor.
type Endpoint struct {
	Name      EndpointName
	Method    string
	Path      string
	Kind      Kind
	Paginated bool
}

var endpointTable = []Endpoint{
	{EndpointAccount, http.MethodGet, "account", KindAccount, false},
	{EndpointSubaccounts, http.MethodGet, "subAccounts", KindAccount, true},
	{EndpointTerms, http.MethodGet, "terms", KindTerm, true},

	{EndpointUserInProgressSurvey, http.MethodGet, "users/hasInProgressSurvey", KindRecord, false},
	{EndpointUserGradeBlock, http.MethodGet, "users/hasGradeBlock", KindRecord, false},
	{EndpointUsers, http.MethodGet, "users", KindUser, true},
	{EndpointUserMetadata, http.MethodGet, "users/metadata", KindMetadata, true},
	{EndpointUserMetadataSave, http.MethodPost, "users/metadata", KindMetadata, false},
	{EndpointUserMetadataBatch, http.MethodPost, "users/metadata-batch", KindMetadata, false},
	{EndpointUserMetadataRemove, http.MethodDelete, "users/metadata", KindMetadata, false},
	{EndpointAdminUserCreate, http.MethodPost, "users/administrator", KindUser, false},
	{EndpointAdminUserUpdate, http.MethodPut, "users/administrator", KindUser, false},

	{EndpointSurveys, http.MethodGet, "surveys", KindSurvey, true},
	{EndpointSurvey, http.MethodGet, "surveys/{surveyId}", KindSurvey, false},
	{EndpointSurveyQuestions, http.MethodGet, "surveys/{surveyId}/Questions", KindQuestion, true},
	{EndpointSurveyResponseRate, http.MethodGet, "SurveyResponseRate/{surveyId}", KindResponseRate, true},

	{EndpointProjects, http.MethodGet, "projects", KindProject, true},
	{EndpointProject, http.MethodGet, "projects/{projectId}", KindProject, false},
	{EndpointProjectCreate, http.MethodPost, "projects", KindProject, false},
	{EndpointProjectSurveys, http.MethodGet, "projects/{projectId}/surveys", KindProjectSurvey, true},
	{EndpointProjectCourses, http.MethodGet, "projects/{projectId}/courses", KindProjectCourse, true},
	{EndpointProjectCourse, http.MethodGet, "projects/{projectId}/courses/{courseId}", KindProjectCourse, true},
	{EndpointProjectRespondents, http.MethodGet, "projects/{projectId}/respondents", KindRespondent, true},
	{EndpointProjectNonRespondents, http.MethodGet, "projects/{projectId}/nonRespondents", KindNonRespondent, true},
	{EndpointProjectResponseRate, http.MethodGet, "projects/{projectId}/responseRate", KindResponseRate, true},
	{EndpointProjectRawData, http.MethodGet, "projects/{projectId}/general/rawData", KindRawData, true},

	{EndpointCourses, http.MethodGet, "courses", KindCourse, true},
	{EndpointCourse, http.MethodGet, "courses/{courseId}", KindCourse, false},
	{EndpointCourseProjects, http.MethodGet, "courses/{courseId}/projects", KindProject, true},
	{EndpointCourseMetadata, http.MethodGet, "courses/{courseId}/metadata", KindMetadata, false},

	{EndpointNodes, http.MethodGet, "nodes", KindNode, true},
	{EndpointNode, http.MethodGet, "nodes/{nodeId}", KindNode, false},
	{EndpointNodeCreate, http.MethodPost, "node", KindNode, false},
	{EndpointNodeUpdate, http.MethodPut, "node/{nodeId}", KindNode, false},
	{EndpointNodeDelete, http.MethodDelete, "node/{nodeId}", KindNode, false},
	{EndpointNodeMapper, http.MethodGet, "nodemapper/{nodeMapperId}", KindNodeMapper, false},
	{EndpointNodeMapperCreate, http.MethodPost, "nodemapper", KindNodeMapper, false},
	{EndpointNodeMapperUpdate, http.MethodPut, "nodemapper/{nodeMapperId}", KindNodeMapper, false},
	{EndpointNodeMapperDelete, http.MethodDelete, "nodemapper/{nodeMapperId}", KindNodeMapper, false},
}

var endpointsByName = func() map[EndpointName]Endpoint {
	byName := make(map[EndpointName]Endpoint, len(endpointTable))
	for _, endpoint := range endpointTable {
		byName[endpoint.Name] = endpoint
	}

	return byName
}()

var placeholderPattern = regexp.MustCompile(`\{[^}]+\}`)

// LookupEndpoint returns the table entry for name.
func LookupEndpoint(name EndpointName) (Endpoint, error) {
	endpoint, ok := endpointsByName[name]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}

	return endpoint, nil
}

// Endpoints returns a copy of the endpoint table.
func Endpoints() []Endpoint {
	out := make([]Endpoint, len(endpointTable))
	copy(out, endpointTable)

	return out
}

// Placeholders returns the number of path arguments the endpoint takes.
func (e Endpoint) Placeholders() int {
	return len(placeholderPattern.FindAllStringIndex(e.Path, -1))
}

// Descriptor builds the request for this endpoint, filling path
// placeholders in order with path-escaped args.
func (e Endpoint) Descriptor(args ...interface{}) (RequestDescriptor, error) {
	if want := e.Placeholders(); want != len(args) {
		return RequestDescriptor{}, fmt.Errorf("%w: %s takes %d, got %d", ErrPathArgs, e.Name, want, len(args))
	}

	next := 0
	path := placeholderPattern.ReplaceAllStringFunc(e.Path, func(string) string {
		arg := url.PathEscape(FormatValue(args[next]))
		next++

		return arg
	})

	return NewRequest(e.Method, path), nil
}
