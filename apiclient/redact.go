package apiclient

import (
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/fin-c3po/api-contract-tests/jsonpath"
)

const redactedValue = "[REDACTED]"

// Property names are compared in lower case.
var secretProperties = map[string]bool{
	"password":     true,
	"accesstoken":  true,
	"refreshtoken": true,
}

// redactBody replaces the value of every secret property, at any depth, in a JSON body.
// A body that is not JSON or holds no secrets is returned as it is.
func redactBody(data []byte) []byte {
	doc, err := jsonpath.Parse(data)
	if err != nil {
		return data
	}
	redacted, changed := redactValue(doc)
	if !changed {
		return data
	}
	return []byte(redacted.JSONString())
}

func redactValue(v ldvalue.Value) (ldvalue.Value, bool) {
	changed := false
	switch v.Type() {
	case ldvalue.ObjectType:
		b := ldvalue.ObjectBuild()
		for _, key := range v.Keys() {
			item := v.GetByKey(key)
			if secretProperties[strings.ToLower(key)] && !item.IsNull() {
				item = ldvalue.String(redactedValue)
				changed = true
			} else if r, c := redactValue(item); c {
				item = r
				changed = true
			}
			b.Set(key, item)
		}
		if changed {
			return b.Build(), true
		}
	case ldvalue.ArrayType:
		b := ldvalue.ArrayBuild()
		for i := 0; i < v.Count(); i++ {
			item := v.GetByIndex(i)
			if r, c := redactValue(item); c {
				item = r
				changed = true
			}
			b.Add(item)
		}
		if changed {
			return b.Build(), true
		}
	}
	return v, false
}
