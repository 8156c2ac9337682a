package ces

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind tags the resource type an Object represents.
type Kind string

// Resource kinds.
const (
	KindRecord        Kind = "Record"
	KindAccount       Kind = "Account"
	KindTerm          Kind = "Term"
	KindSurvey        Kind = "Survey"
	KindProject       Kind = "Project"
	KindCourse        Kind = "Course"
	KindUser          Kind = "User"
	KindMetadata      Kind = "Metadata"
	KindNode          Kind = "Node"
	KindNodeMapper    Kind = "NodeMapper"
	KindProjectSurvey Kind = "ProjectSurvey"
	KindProjectCourse Kind = "ProjectCourse"
	KindQuestion      Kind = "Question"
	KindRespondent    Kind = "Respondent"
	KindNonRespondent Kind = "NonRespondent"
	KindResponseRate  Kind = "ResponseRate"
	KindRawData       Kind = "RawData"
)

// Object exposes the fields of one record and links back to the object it
// was listed from, so a ProjectSurvey can reach its Project.
type Object struct {
	kind    Kind
	record  *Record
	parent  *Object
	session *Session
}

// NewObject wraps a record. parent and session may be nil.
func NewObject(kind Kind, record *Record, parent *Object, session *Session) *Object {
	if record == nil {
		record = &Record{}
	}

	return &Object{kind: kind, record: record, parent: parent, session: session}
}

// Kind returns the resource kind.
func (o *Object) Kind() Kind { return o.kind }

// Record returns the underlying record.
func (o *Object) Record() *Record { return o.record }

// Parent returns the object this one was reached from, or nil.
func (o *Object) Parent() *Object { return o.parent }

// Session returns the session used for follow-up calls.
func (o *Object) Session() *Session { return o.session }

// Ancestor walks the parent chain, starting with o itself, and returns the
// first object of the given kind.
func (o *Object) Ancestor(kind Kind) (*Object, error) {
	for current := o; current != nil; current = current.parent {
		if current.kind == kind {
			return current, nil
		}
	}

	return nil, fmt.Errorf("%w: %s has no %s in its context", ErrNoAncestor, o.kind, kind)
}

// Field returns the raw value of a field.
func (o *Object) Field(name string) (interface{}, error) {
	value, ok := o.record.Get(name)
	if !ok {
		return nil, &FieldError{Kind: o.kind, Field: name, Err: ErrNoSuchField}
	}

	return value, nil
}

// Has reports whether the field exists.
func (o *Object) Has(name string) bool {
	return o.record.Has(name)
}

// GetString returns a field as a string. Scalars are formatted.
func (o *Object) GetString(name string) (string, error) {
	value, err := o.Field(name)
	if err != nil {
		return "", err
	}

	if value == nil {
		return "", nil
	}

	return FormatValue(value), nil
}

// GetInt returns a numeric field as int64.
func (o *Object) GetInt(name string) (int64, error) {
	value, err := o.Field(name)
	if err != nil {
		return 0, err
	}

	i, ok := toInt64(value)
	if !ok {
		return 0, o.typeError(name, value)
	}

	return i, nil
}

// GetFloat returns a numeric field as float64.
func (o *Object) GetFloat(name string) (float64, error) {
	value, err := o.Field(name)
	if err != nil {
		return 0, err
	}

	f, ok := toFloat64(value)
	if !ok {
		return 0, o.typeError(name, value)
	}

	return f, nil
}

// GetBool returns a boolean field.
func (o *Object) GetBool(name string) (bool, error) {
	value, err := o.Field(name)
	if err != nil {
		return false, err
	}

	switch typed := value.(type) {
	case bool:
		return typed, nil
	case string:
		b, parseErr := strconv.ParseBool(typed)
		if parseErr == nil {
			return b, nil
		}
	}

	return false, o.typeError(name, value)
}

// GetTime returns a date field. The zero time is returned for null dates.
func (o *Object) GetTime(name string) (time.Time, error) {
	value, err := o.Field(name)
	if err != nil {
		return time.Time{}, err
	}

	parsed, parseErr := ParseDate(value)
	if parseErr != nil {
		return time.Time{}, &DateParseError{Field: name, Value: value, Err: parseErr}
	}

	if parsed == nil {
		return time.Time{}, nil
	}

	return parsed.(time.Time), nil
}

// ID returns the numeric "id" field.
func (o *Object) ID() (int64, error) {
	return o.GetInt("id")
}

// MarshalJSON encodes the underlying record.
func (o *Object) MarshalJSON() ([]byte, error) {
	return o.record.MarshalJSON()
}

// MarshalYAML encodes the underlying record.
func (o *Object) MarshalYAML() (interface{}, error) {
	return o.record.MarshalYAML()
}

func (o *Object) typeError(name string, value interface{}) error {
	return &FieldError{Kind: o.kind, Field: name, Err: fmt.Errorf("%w: %T", ErrFieldType, value)}
}

func toInt64(value interface{}) (int64, bool) {
	switch typed := value.(type) {
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case float64:
		if typed == math.Trunc(typed) {
			return int64(typed), true
		}
	case string:
		i, err := strconv.ParseInt(typed, 10, 64)

		return i, err == nil
	}

	return 0, false
}

func toFloat64(value interface{}) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case string:
		f, err := strconv.ParseFloat(typed, 64)

		return f, err == nil
	}

	return 0, false
}
