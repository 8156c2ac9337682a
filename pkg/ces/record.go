package ces

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DateFields lists the fields converted to time.Time when a page is ingested.
var DateFields = []string{
	"created",
	"updated",
	"startDate",
	"endDate",
	"adminReportAccessStartDate",
	"adminReportAccessEndDate",
	"instructorReportAccessStartDate",
	"instructorReportAccessEndDate",
	"taReportAccessStartDate",
	"taReportAccessEndDate",
	"customQuestionStartDate",
	"customQuestionEndDate",
	"submitDateTime",
	"courseSurveyStart",
	"courseSurveyEnd",
	"submitDate",
}

var dateFieldSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(DateFields))
	for _, name := range DateFields {
		set[name] = struct{}{}
	}

	return set
}()

// IsDateField reports whether name is coerced to a time.
func IsDateField(name string) bool {
	_, ok := dateFieldSet[name]

	return ok
}

// dateLayouts are tried in order. Layouts without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseDate converts a raw date value. Values that are already times are
// returned unchanged; nil and "" become nil.
func ParseDate(value interface{}) (interface{}, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return typed, nil
	case *time.Time:
		if typed == nil {
			return nil, nil
		}

		return *typed, nil
	case string:
		raw := strings.TrimSpace(typed)
		if raw == "" {
			return nil, nil
		}

		var firstErr error

		for _, layout := range dateLayouts {
			parsed, err := time.ParseInLocation(layout, raw, time.UTC)
			if err == nil {
				return parsed, nil
			}

			if firstErr == nil {
				firstErr = err
			}
		}

		return nil, firstErr
	default:
		return nil, fmt.Errorf("%w: %T", ErrFieldType, value)
	}
}

// Record is one decoded JSON object. Field order follows the payload.
type Record struct {
	keys   []string
	values map[string]interface{}
}

// NewRecord creates a record from alternating keys and values.
func NewRecord(kv ...interface{}) *Record {
	r := &Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(fmt.Sprint(kv[i]), kv[i+1])
	}

	return r
}

// RecordFromMap creates a record from a map; keys are sorted for stable order.
func RecordFromMap(m map[string]interface{}) *Record {
	r := &Record{}
	for _, key := range sortedKeys(m) {
		r.Set(key, m[key])
	}

	return r
}

// Get returns the value of a field.
func (r *Record) Get(name string) (interface{}, bool) {
	if r == nil || r.values == nil {
		return nil, false
	}

	value, ok := r.values[name]

	return value, ok
}

// Has reports whether the field exists.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)

	return ok
}

// Set stores a field, appending it to the key order when new.
func (r *Record) Set(name string, value interface{}) {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}

	if _, exists := r.values[name]; !exists {
		r.keys = append(r.keys, name)
	}

	r.values[name] = value
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}

	out := make([]string, len(r.keys))
	copy(out, r.keys)

	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}

	return len(r.keys)
}

// Clone returns a shallow copy.
func (r *Record) Clone() *Record {
	out := &Record{}
	for _, key := range r.keys {
		out.Set(key, r.values[key])
	}

	return out
}

// Map returns the fields as a plain map.
func (r *Record) Map() map[string]interface{} {
	out := make(map[string]interface{}, r.Len())
	for _, key := range r.Keys() {
		out[key] = r.values[key]
	}

	return out
}

// CoerceDates replaces the raw values of every date field with time.Time.
// Running it twice leaves the record unchanged.
func (r *Record) CoerceDates() error {
	for _, key := range r.keys {
		if !IsDateField(key) {
			continue
		}

		parsed, err := ParseDate(r.values[key])
		if err != nil {
			return &DateParseError{Field: key, Value: r.values[key], Err: err}
		}

		r.values[key] = parsed
	}

	return nil
}

// UnmarshalJSON decodes a JSON object keeping field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected object, got %v", ErrUnexpectedResponse, tok)
	}

	r.keys = nil
	r.values = make(map[string]interface{})

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("decoding record key: %w", err)
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: non-string key %v", ErrUnexpectedResponse, tok)
		}

		var value interface{}

		err = dec.Decode(&value)
		if err != nil {
			return fmt.Errorf("decoding record field %q: %w", key, err)
		}

		r.Set(key, normalizeNumbers(value))
	}

	_, err = dec.Token()
	if err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}

	return nil
}

// MarshalJSON encodes the record keeping field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}

		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", key, err)
		}

		encodedValue, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("encoding field %q: %w", key, err)
		}

		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(encodedValue)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// MarshalYAML encodes the record as an ordered mapping.
func (r *Record) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, key := range r.Keys() {
		valueNode := &yaml.Node{}

		err := valueNode.Encode(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("encoding field %q: %w", key, err)
		}

		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			valueNode,
		)
	}

	return node, nil
}

// normalizeNumbers turns json.Number into int64 when integral, float64 otherwise.
func normalizeNumbers(value interface{}) interface{} {
	switch typed := value.(type) {
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i
		}

		if f, err := typed.Float64(); err == nil {
			return f
		}

		return typed.String()
	case map[string]interface{}:
		for key, item := range typed {
			typed[key] = normalizeNumbers(item)
		}

		return typed
	case []interface{}:
		for i, item := range typed {
			typed[i] = normalizeNumbers(item)
		}

		return typed
	default:
		return value
	}
}
