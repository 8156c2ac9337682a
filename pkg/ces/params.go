package ces

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// Param is one key/value pair of a query string or form body.
type Param struct {
	Key   string
	Value interface{}
}

// Params is an ordered parameter list. Values may be scalars, time.Time,
// slices or maps; Flatten turns nested values into bracket-suffixed keys.
type Params []Param

// P builds Params from alternating keys and values. A trailing key without a
// value is ignored.
func P(kv ...interface{}) Params {
	out := make(Params, 0, len(kv)/2)

	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Param{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}

	return out
}

// Get returns the value stored under key.
func (p Params) Get(key string) (interface{}, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}

	return nil, false
}

// With returns a copy of p with key set to value. An existing key keeps its position.
func (p Params) With(key string, value interface{}) Params {
	out := make(Params, len(p), len(p)+1)
	copy(out, p)

	for i := range out {
		if out[i].Key == key {
			out[i].Value = value

			return out
		}
	}

	return append(out, Param{Key: key, Value: value})
}

// Merge returns a copy of p overlaid with other.
func (p Params) Merge(other Params) Params {
	out := p.Clone()
	for _, param := range other {
		out = out.With(param.Key, param.Value)
	}

	return out
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}

	out := make(Params, len(p))
	copy(out, p)

	return out
}

// Flatten expands nested maps and slices into bracket keys and formats every
// scalar as a string: {"a": {"b": [1, 2]}} becomes a[b][]=1, a[b][]=2.
// Nil values are dropped.
func (p Params) Flatten() []Param {
	out := make([]Param, 0, len(p))

	for _, param := range p {
		flattenValue(param.Key, param.Value, &out)
	}

	return out
}

// Values returns the flattened parameters as url.Values.
func (p Params) Values() url.Values {
	values := url.Values{}

	for _, param := range p.Flatten() {
		values.Add(param.Key, param.Value.(string))
	}

	return values
}

// Encode returns the flattened parameters URL-encoded in their original order.
func (p Params) Encode() string {
	flat := p.Flatten()
	buf := make([]byte, 0, len(flat)*16)

	for i, param := range flat {
		if i > 0 {
			buf = append(buf, '&')
		}

		buf = append(buf, url.QueryEscape(param.Key)...)
		buf = append(buf, '=')
		buf = append(buf, url.QueryEscape(param.Value.(string))...)
	}

	return string(buf)
}

func flattenValue(key string, value interface{}, out *[]Param) {
	switch typed := value.(type) {
	case nil:
		return
	case Params:
		for _, param := range typed {
			flattenValue(key+"["+param.Key+"]", param.Value, out)
		}

		return
	case time.Time, []byte:
		*out = append(*out, Param{Key: key, Value: FormatValue(typed)})

		return
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			flattenValue(key+"[]", rv.Index(i).Interface(), out)
		}
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		byName := make(map[string]reflect.Value, rv.Len())

		for _, mk := range rv.MapKeys() {
			name := fmt.Sprint(mk.Interface())
			keys = append(keys, name)
			byName[name] = rv.MapIndex(mk)
		}

		sort.Strings(keys)

		for _, name := range keys {
			flattenValue(key+"["+name+"]", byName[name].Interface(), out)
		}
	default:
		*out = append(*out, Param{Key: key, Value: FormatValue(rv.Interface())})
	}
}

// FormatValue renders a scalar the way the API expects it on the wire:
// booleans lowercase, times as ISO-8601.
func FormatValue(value interface{}) string {
	switch typed := value.(type) {
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case time.Time:
		return typed.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case []byte:
		return string(typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
