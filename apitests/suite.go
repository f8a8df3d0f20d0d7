package apitests

import (
	"github.com/fin-c3po/api-contract-tests/apiclient"
	"github.com/fin-c3po/api-contract-tests/framework"
	"github.com/fin-c3po/api-contract-tests/tokenstore"
)

// Config is what the suites need to reach the service.
type Config struct {
	Client *apiclient.Client
	Tokens *tokenstore.Store
	Admin  Credentials
}

func RunTestSuite(
	config Config,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	return framework.Run(filter, testLogger, func(c *framework.Context) {
		t := &T{
			context: c,
			env: &environment{
				client: config.Client,
				tokens: config.Tokens,
				admin:  config.Admin,
			},
		}

		t.Run("auth", DoAuthTests)
		t.Run("admin users", DoAdminUserTests)
		t.Run("course content", DoCourseContentTests)
		t.Run("AI assistant", DoAIAssistantTests)
		t.Run("profile", DoProfileTests)
		t.Run("system settings", DoSystemSettingsTests)
	})
}
