package apitests

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fin-c3po/api-contract-tests/apiclient"
	"github.com/fin-c3po/api-contract-tests/fakeservice"
	"github.com/fin-c3po/api-contract-tests/framework"
	"github.com/fin-c3po/api-contract-tests/tokenstore"
)

const (
	testAdminUsername = "admin"
	testAdminPassword = "admin-password"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func newConfig(t *testing.T, baseURL string) Config {
	tokens := tokenstore.New(filepath.Join(t.TempDir(), "token"))
	return Config{
		Client: apiclient.NewClient(baseURL, 5*time.Second, tokens),
		Tokens: tokens,
		Admin:  Credentials{Identifier: testAdminUsername, Password: testAdminPassword},
	}
}

func runAgainstFakeService(t *testing.T, faults fakeservice.Faults, filter framework.Filter) framework.Results {
	service := fakeservice.New(testAdminUsername, testAdminPassword)
	service.SetFaults(faults)
	var results framework.Results
	httphelpers.WithServer(service.Handler(), func(server *httptest.Server) {
		results = RunTestSuite(newConfig(t, server.URL), filter, nil)
	})
	return results
}

func failedLabels(results framework.Results) []string {
	var ret []string
	for _, c := range results.Checks {
		if !c.Passed {
			ret = append(ret, c.TestID.String()+": "+c.Label)
		}
	}
	return ret
}

func warnings(results framework.Results) []string {
	var ret []string
	for _, r := range results.Tests {
		ret = append(ret, r.Warnings...)
	}
	return ret
}

func TestAllSuitesPassAgainstConformingService(t *testing.T) {
	results := runAgainstFakeService(t, fakeservice.Faults{}, nil)

	assert.True(t, results.OK(), "failed checks: %v", failedLabels(results))
	assert.Equal(t, 0, results.Tally.Failed)
	assert.Equal(t, 0, results.Tally.Warnings, "warnings: %v", warnings(results))
	assert.Equal(t, 0, results.Tally.Skipped)
	assert.Greater(t, results.Tally.Passed, 50)

	var labels []string
	for _, c := range results.Checks {
		labels = append(labels, c.Label)
	}
	assert.Contains(t, labels, "Modules list contains created module")
	assert.Contains(t, labels, "Login as disabled user returns 403")
	assert.Contains(t, labels, "Cleared conversation is no longer listed")
	assert.Contains(t, labels, "Unauthorized chat request should return 401")
}

func TestMissingModuleIsAFailure(t *testing.T) {
	results := runAgainstFakeService(t, fakeservice.Faults{OmitModulesFromList: true}, nil)

	assert.False(t, results.OK())
	assert.Equal(t, []string{"course content/list modules: Modules list contains created module"},
		failedLabels(results))
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "course content/list modules", results.Failures[0].TestID.String())
}

func TestDisabledUserLoginIsAFailure(t *testing.T) {
	results := runAgainstFakeService(t, fakeservice.Faults{DisabledUsersCanLogIn: true}, nil)

	assert.Equal(t, []string{"admin users/disabled user cannot log in: Login as disabled user returns 403"},
		failedLabels(results))
}

func TestLenientServiceBehaviorOnlyWarns(t *testing.T) {
	results := runAgainstFakeService(t, fakeservice.Faults{
		AcceptUnknownChatRoles: true,
		KeepDeletedChats:       true,
	}, nil)

	assert.True(t, results.OK(), "failed checks: %v", failedLabels(results))
	assert.Equal(t, 2, results.Tally.Warnings)
	assert.Len(t, warnings(results), 2)
}

func TestFilterSelectsSuites(t *testing.T) {
	var filters framework.RegexFilters
	require.NoError(t, filters.MustMatch.Set("^auth$"))
	results := runAgainstFakeService(t, fakeservice.Faults{}, filters.AsFilter)

	assert.True(t, results.OK())
	assert.Equal(t, 5, results.Tally.Skipped)
	for _, c := range results.Checks {
		assert.Equal(t, "auth", c.TestID.Path[0])
	}
}

func TestUnreachableServiceFailsWithoutPanicking(t *testing.T) {
	server := httptest.NewServer(httphelpers.HandlerWithStatus(200))
	url := server.URL
	server.Close()

	results := RunTestSuite(newConfig(t, url), nil, nil)

	assert.False(t, results.OK())
	for _, r := range results.Failures {
		for _, err := range r.Errors {
			assert.NotContains(t, err.Error(), "unexpected panic", r.TestID.String())
		}
	}
	assert.Equal(t, 0, results.Tally.Passed)

	var suitesFailed []string
	for _, r := range results.Failures {
		if len(r.TestID.Path) == 1 {
			suitesFailed = append(suitesFailed, r.TestID.String())
		}
	}
	assert.ElementsMatch(t, []string{
		"admin users", "course content", "AI assistant", "profile", "system settings",
	}, suitesFailed, "every suite that starts by logging in stops at the login")
}

func TestSuitesLeaveAdminLoggedIn(t *testing.T) {
	service := fakeservice.New(testAdminUsername, testAdminPassword)
	httphelpers.WithServer(service.Handler(), func(server *httptest.Server) {
		config := newConfig(t, server.URL)
		var filters framework.RegexFilters
		require.NoError(t, filters.MustMatch.Set("^course content$"))
		results := RunTestSuite(config, filters.AsFilter, nil)
		require.True(t, results.OK(), "failed checks: %v", failedLabels(results))

		claims, err := tokenstore.Inspect(config.Tokens.Token())
		require.NoError(t, err)

		me := config.Client.Get("/v1/users/me", nil)
		require.Equal(t, 200, me.Status)
		assert.Contains(t, string(me.Body), `"role":"ADMIN"`)
		assert.NotEmpty(t, claims.Subject)
	})
}
