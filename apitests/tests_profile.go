package apitests

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/fin-c3po/api-contract-tests/servicedef"
)

func DoProfileTests(t *T) {
	t.RequireLogin(t.AdminCredentials())

	t.Run("current user", func(t *T) {
		resp := t.Get("/v1/users/me")
		t.RequireStatus(200, resp, "Get current user")
		t.AssertJSONField(resp, "data.id", "Current user has id")
		t.AssertJSONField(resp, "data.username", "Current user has username")
		t.AssertJSONEquals(resp, "data.role", ldvalue.String(servicedef.RoleAdmin), "Current user role")
	})

	t.Run("profile", func(t *T) {
		resp := t.Get("/v1/profile")
		t.RequireStatus(200, resp, "Get profile")
		t.AssertJSONField(resp, "data.id", "Profile has id")
		t.AssertJSONField(resp, "data.email", "Profile has email")
	})
}
