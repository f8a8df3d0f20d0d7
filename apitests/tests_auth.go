package apitests

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/fin-c3po/api-contract-tests/servicedef"
	"github.com/fin-c3po/api-contract-tests/tokenstore"
)

func DoAuthTests(t *T) {
	admin := t.AdminCredentials()

	t.Run("admin login", func(t *T) {
		resp := t.Post("/auth/login", servicedef.LoginParams{
			Identifier: admin.Identifier,
			Password:   admin.Password,
		})
		t.RequireStatus(200, resp, "Login as "+admin.Identifier)
		t.RequireJSONField(resp, tokenstore.TokenField, "Login response has accessToken")
		t.AssertJSONEquals(resp, "tokenType", ldvalue.String("Bearer"), "Login response token type")
		t.AssertJSONField(resp, "expiresIn", "Login response has expiresIn")
		t.env.tokens.Save(resp.Body, t.DebugLogger())
	})

	t.Run("wrong password is rejected", func(t *T) {
		resp := t.Post("/auth/login", servicedef.LoginParams{
			Identifier: admin.Identifier,
			Password:   admin.Password + "-wrong",
		})
		t.AssertStatus(401, resp, "Login with wrong password returns 401")
	})

	t.Run("unknown user is rejected", func(t *T) {
		resp := t.Post("/auth/login", servicedef.LoginParams{
			Identifier: "no-such-user-" + uniqueSuffix(),
			Password:   "irrelevant",
		})
		t.AssertStatus(401, resp, "Login as unknown user returns 401")
	})

	t.Run("protected request without token", func(t *T) {
		t.WithoutToken(func() {
			resp := t.Get("/v1/users/me")
			t.AssertStatus(401, resp, "Request without token returns 401")
		})
	})
}
