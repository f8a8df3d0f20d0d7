// Package jsonpath resolves dotted field paths such as "data.created" inside a JSON
// document.
//
// Only objects are walked. A segment that names a missing key, or that is applied to a
// value which is not an object, resolves to Absent rather than producing an error. An
// explicit JSON null is reported as Null so that callers can tell the two apart, although
// the assertion helpers built on top of this package treat both as missing.
package jsonpath

import (
	"encoding/json"
	"errors"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

type Presence int

const (
	Absent Presence = iota
	Null
	Present
)

func (p Presence) String() string {
	switch p {
	case Null:
		return "null"
	case Present:
		return "present"
	default:
		return "absent"
	}
}

var (
	ErrEmptyDocument   = errors.New("empty JSON payload")
	ErrInvalidDocument = errors.New("invalid JSON payload")
)

// Parse decodes a response body into a generic JSON value.
func Parse(body []byte) (ldvalue.Value, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return ldvalue.Null(), ErrEmptyDocument
	}
	var v ldvalue.Value
	if err := json.Unmarshal(body, &v); err != nil {
		return ldvalue.Null(), ErrInvalidDocument
	}
	return v, nil
}

// Resolve walks path through nested objects in doc.
func Resolve(doc ldvalue.Value, path string) (ldvalue.Value, Presence) {
	current := doc
	for _, segment := range strings.Split(path, ".") {
		if current.Type() != ldvalue.ObjectType || !hasKey(current, segment) {
			return ldvalue.Null(), Absent
		}
		current = current.GetByKey(segment)
	}
	if current.IsNull() {
		return current, Null
	}
	return current, Present
}

// Lookup returns the value at path only if it is present and not null.
func Lookup(doc ldvalue.Value, path string) (ldvalue.Value, bool) {
	v, presence := Resolve(doc, path)
	return v, presence == Present
}

// Display renders a resolved value for assertion messages: strings without quotes, other
// values as JSON, and "<empty>" for anything missing or blank.
func Display(v ldvalue.Value, presence Presence) string {
	if presence != Present {
		return "<empty>"
	}
	if v.Type() == ldvalue.StringType {
		if v.StringValue() == "" {
			return "<empty>"
		}
		return v.StringValue()
	}
	return v.JSONString()
}

func hasKey(obj ldvalue.Value, key string) bool {
	for _, k := range obj.Keys() {
		if k == key {
			return true
		}
	}
	return false
}
