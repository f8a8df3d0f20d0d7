package apitests

import (
	"github.com/stretchr/testify/assert"

	"github.com/fin-c3po/api-contract-tests/jsonpath"
)

const systemSettingsPath = "/v1/admin/system/settings"

func DoSystemSettingsTests(t *T) {
	t.RequireLogin(t.AdminCredentials())

	t.Run("read settings", func(t *T) {
		resp := t.Get(systemSettingsPath)
		t.RequireStatus(200, resp, "Get system settings")
		t.RequireJSONField(resp, "data.passwordPolicy.minLength", "Settings have password minimum length")

		minLength, _ := jsonpath.Lookup(t.Document(resp), "data.passwordPolicy.minLength")
		t.Expect("Password minimum length is positive", func(a assert.TestingT) bool {
			return assert.Greater(a, minLength.IntValue(), 0)
		})
	})

	t.Run("settings require a token", func(t *T) {
		t.WithoutToken(func() {
			resp := t.Get(systemSettingsPath)
			t.AssertStatus(401, resp, "System settings without token returns 401")
		})
	})
}
