package apitests

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/fin-c3po/api-contract-tests/apiclient"
	"github.com/fin-c3po/api-contract-tests/framework"
	"github.com/fin-c3po/api-contract-tests/jsonpath"
	"github.com/fin-c3po/api-contract-tests/servicedef"
	"github.com/fin-c3po/api-contract-tests/tokenstore"
)

type Credentials struct {
	Identifier string
	Password   string
}

type environment struct {
	client *apiclient.Client
	tokens *tokenstore.Store
	admin  Credentials
}

// T represents a test or subtest in the API test suite.
//
// It implements the same basic functionality as Go's testing.T, outside of the Go test runner.
// Unlike testing.T, every labelled assertion is counted: a passing check increments the
// passed tally and a failing one the failed tally, and neither stops the test unless it is
// one of the Require variants.
//
// T also satisfies the TestingT interfaces of testify's assert and require packages; see Expect
// for how to use those while still counting the check.
type T struct {
	context *framework.Context
	env     *environment
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow ends the current test function. Later subtests of the parent still run.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest. This is equivalent to the Run method of testing.T.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		action(&T{context: c, env: t.env})
	})
}

func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

func (t *T) DebugLogger() framework.Logger {
	return t.context.DebugLogger()
}

func (t *T) Infof(format string, args ...interface{}) {
	t.context.Infof(format, args...)
}

// Warnf logs a warning. Warnings are counted but never fail the run.
func (t *T) Warnf(format string, args ...interface{}) {
	t.context.Warnf(format, args...)
}

func (t *T) Defer(action func()) {
	t.context.Defer(action)
}

// SkipWithReason logs the reason as a warning and ends the test as skipped.
func (t *T) SkipWithReason(format string, args ...interface{}) {
	reason := fmt.Sprintf(format, args...)
	t.context.Warnf("Skipping: %s", reason)
	t.context.SkipWithReason(reason)
}

// RequireFixture skips the test if an identifier that an earlier test was supposed to
// produce is missing.
func (t *T) RequireFixture(value, description string) string {
	if value == "" {
		t.SkipWithReason("no %s", description)
	}
	return value
}

func (t *T) Get(path string) apiclient.Response {
	return t.env.client.Get(path, t.DebugLogger())
}

func (t *T) Post(path string, body interface{}) apiclient.Response {
	return t.env.client.Post(path, body, t.DebugLogger())
}

func (t *T) Put(path string, body interface{}) apiclient.Response {
	return t.env.client.Put(path, body, t.DebugLogger())
}

func (t *T) Patch(path string, body interface{}) apiclient.Response {
	return t.env.client.Patch(path, body, t.DebugLogger())
}

func (t *T) Delete(path string) apiclient.Response {
	return t.env.client.Delete(path, t.DebugLogger())
}

// Login posts the credentials, checks the response and stores the token so that all later
// requests are made as this user.
func (t *T) Login(creds Credentials) bool {
	resp := t.Post("/auth/login", servicedef.LoginParams{
		Identifier: creds.Identifier,
		Password:   creds.Password,
	})
	if !t.AssertStatus(200, resp, "Login as "+creds.Identifier) {
		return false
	}
	if !t.AssertJSONField(resp, tokenstore.TokenField, "Login response has accessToken") {
		return false
	}
	return t.env.tokens.Save(resp.Body, t.DebugLogger())
}

// RequireLogin is like Login, but ends the test if the login fails.
func (t *T) RequireLogin(creds Credentials) {
	if !t.Login(creds) {
		t.FailNow()
	}
}

func (t *T) LoginAsAdmin() bool {
	return t.Login(t.env.admin)
}

func (t *T) AdminCredentials() Credentials {
	return t.env.admin
}

// WithoutToken runs action with the stored token removed, then puts the token back.
func (t *T) WithoutToken(action func()) {
	restore := t.env.tokens.Stash()
	defer restore()
	action()
}

// AssertStatus records a passing check iff the response has the expected status.
func (t *T) AssertStatus(expected int, resp apiclient.Response, label string) bool {
	if resp.Status == expected {
		t.context.Pass(label)
		return true
	}
	detail := fmt.Sprintf("expected %d, got %s", expected, resp.StatusCode())
	if resp.Err != nil {
		detail += ": " + resp.Err.Error()
	}
	t.context.Fail(label, detail)
	return false
}

func (t *T) RequireStatus(expected int, resp apiclient.Response, label string) {
	if !t.AssertStatus(expected, resp, label) {
		t.FailNow()
	}
}

// AssertJSONField records a passing check iff the dotted path resolves through nested objects
// to a value that is not null.
func (t *T) AssertJSONField(resp apiclient.Response, path, label string) bool {
	_, ok := t.field(resp, path, label)
	if ok {
		t.context.Pass(label)
	}
	return ok
}

func (t *T) RequireJSONField(resp apiclient.Response, path, label string) {
	if !t.AssertJSONField(resp, path, label) {
		t.FailNow()
	}
}

// AssertJSONEquals records a passing check iff the value at the dotted path equals expected.
func (t *T) AssertJSONEquals(resp apiclient.Response, path string, expected ldvalue.Value, label string) bool {
	doc, err := jsonpath.Parse(resp.Body)
	if err != nil {
		t.context.Fail(label, err.Error())
		return false
	}
	actual, presence := jsonpath.Resolve(doc, path)
	if presence == jsonpath.Present && actual.Equal(expected) {
		t.context.Pass(fmt.Sprintf("%s ('%s')", label, jsonpath.Display(actual, presence)))
		return true
	}
	t.context.Fail(label, fmt.Sprintf("expected '%s', got '%s'",
		jsonpath.Display(expected, jsonpath.Present), jsonpath.Display(actual, presence)))
	return false
}

// RequireString checks that the dotted path holds a string or number and returns it as a
// string. It is how suites pick up identifiers of resources they created.
func (t *T) RequireString(resp apiclient.Response, path, label string) string {
	v, ok := t.field(resp, path, label)
	if !ok {
		t.FailNow()
	}
	s := scalarString(v)
	if s == "" {
		t.context.Fail(label, fmt.Sprintf("%s is not a string or number: %s", path, v.JSONString()))
		t.FailNow()
	}
	t.context.Pass(fmt.Sprintf("%s (%s)", label, s))
	return s
}

// Pass records a passing check for something the suite verified without an assertion helper.
func (t *T) Pass(label string) {
	t.context.Pass(label)
}

// Check records a passing or failing check for a condition the suite evaluated itself.
func (t *T) Check(ok bool, label, failureDetail string) bool {
	if ok {
		t.context.Pass(label)
	} else {
		t.context.Fail(label, failureDetail)
	}
	return ok
}

// Expect runs a testify assertion and records its outcome as one labelled check.
//
//	t.Expect("list contains created module", func(a assert.TestingT) bool {
//		return assert.Contains(a, ids, moduleID)
//	})
func (t *T) Expect(label string, assertion func(assert.TestingT) bool) bool {
	var c collectingT
	if assertion(&c) && len(c.messages) == 0 {
		t.context.Pass(label)
		return true
	}
	for _, m := range c.messages {
		t.Debug("%s: %s", label, m)
	}
	t.context.Fail(label, c.summary())
	return false
}

// Document parses the response body, or returns a null value if it is not valid JSON.
func (t *T) Document(resp apiclient.Response) ldvalue.Value {
	doc, err := jsonpath.Parse(resp.Body)
	if err != nil {
		t.Debug("Could not parse response body: %s", err)
	}
	return doc
}

// Strings collects one property, as a string, from each object in the JSON array at path.
func (t *T) Strings(resp apiclient.Response, path, property string) []string {
	list, ok := jsonpath.Lookup(t.Document(resp), path)
	if !ok || list.Type() != ldvalue.ArrayType {
		return nil
	}
	ret := make([]string, 0, list.Count())
	for i := 0; i < list.Count(); i++ {
		ret = append(ret, scalarString(list.GetByIndex(i).GetByKey(property)))
	}
	return ret
}

func (t *T) field(resp apiclient.Response, path, label string) (ldvalue.Value, bool) {
	doc, err := jsonpath.Parse(resp.Body)
	if err != nil {
		t.context.Fail(label, err.Error())
		return ldvalue.Null(), false
	}
	v, presence := jsonpath.Resolve(doc, path)
	if presence != jsonpath.Present {
		t.context.Fail(label, fmt.Sprintf("%s is %s", path, presence))
		return ldvalue.Null(), false
	}
	return v, true
}

func scalarString(v ldvalue.Value) string {
	switch v.Type() {
	case ldvalue.StringType:
		return v.StringValue()
	case ldvalue.NumberType:
		return v.JSONString()
	default:
		return ""
	}
}

type collectingT struct {
	messages []string
}

func (c *collectingT) Errorf(format string, args ...interface{}) {
	c.messages = append(c.messages, fmt.Sprintf(format, args...))
}

// summary pulls the "Error:" section out of testify's multi-line failure report.
func (c *collectingT) summary() string {
	if len(c.messages) == 0 {
		return "assertion returned false"
	}
	var parts []string
	inError := false
	for _, line := range strings.Split(c.messages[0], "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Error:"):
			inError = true
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "Error:"))
		case strings.HasPrefix(trimmed, "Error Trace:"),
			strings.HasPrefix(trimmed, "Test:"),
			strings.HasPrefix(trimmed, "Messages:"):
			inError = false
			continue
		}
		if inError && trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(c.messages[0])
	}
	return strings.Join(parts, " ")
}

// uniqueSuffix returns a string that keeps names of created resources distinct across runs:
// the current Unix time followed by four random digits.
func uniqueSuffix() string {
	return fmt.Sprintf("%d%d", time.Now().Unix(), 1000+rand.Intn(9000))
}
