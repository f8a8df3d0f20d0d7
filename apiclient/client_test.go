package apiclient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fin-c3po/api-contract-tests/framework"
	"github.com/fin-c3po/api-contract-tests/servicedef"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func jsonHeaders() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return h
}

func withRecordingServer(t *testing.T, status int, body string, action func(*httptest.Server, <-chan httphelpers.HTTPRequestInfo)) {
	handler, requestsCh := httphelpers.RecordingHandler(
		httphelpers.HandlerWithResponse(status, jsonHeaders(), []byte(body)))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		action(server, requestsCh)
	})
}

func TestSendAttachesStoredToken(t *testing.T) {
	withRecordingServer(t, 200, `{"data":[]}`, func(server *httptest.Server, requests <-chan httphelpers.HTTPRequestInfo) {
		c := NewClient(server.URL+"/api/", time.Second, staticToken("tok-1"))
		resp := c.Get("/courses/1/modules", nil)

		assert.Equal(t, 200, resp.Status)
		assert.Equal(t, "200", resp.StatusCode())
		assert.Equal(t, `{"data":[]}`, string(resp.Body))
		assert.NoError(t, resp.Err)

		req := <-requests
		assert.Equal(t, "GET", req.Request.Method)
		assert.Equal(t, "/api/courses/1/modules", req.Request.URL.Path)
		assert.Equal(t, "Bearer tok-1", req.Request.Header.Get("Authorization"))
		assert.Equal(t, "application/json", req.Request.Header.Get("Accept"))
		assert.Empty(t, req.Request.Header.Get("Content-Type"))
		assert.Empty(t, req.Body)
	})
}

func TestSendWithoutTokenHasNoAuthorizationHeader(t *testing.T) {
	withRecordingServer(t, 401, `{"status":401}`, func(server *httptest.Server, requests <-chan httphelpers.HTTPRequestInfo) {
		for _, tokens := range []TokenSource{nil, staticToken("")} {
			c := NewClient(server.URL, time.Second, tokens)
			resp := c.Post("/assistant/chat", map[string]interface{}{"messages": []string{}}, nil)
			assert.Equal(t, 401, resp.Status)

			req := <-requests
			assert.Empty(t, req.Request.Header.Values("Authorization"))
		}
	})
}

func TestSendEncodesJSONBody(t *testing.T) {
	withRecordingServer(t, 201, `{}`, func(server *httptest.Server, requests <-chan httphelpers.HTTPRequestInfo) {
		c := NewClient(server.URL, time.Second, nil)
		body := struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}{"admin", "secret"}
		resp := c.Do("POST", "auth/login", body, nil)
		assert.Equal(t, 201, resp.Status)

		req := <-requests
		assert.Equal(t, "/auth/login", req.Request.URL.Path)
		assert.Equal(t, "application/json", req.Request.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"identifier":"admin","password":"secret"}`, string(req.Body))
	})
}

func TestSendPassesRawBodiesThrough(t *testing.T) {
	withRecordingServer(t, 200, `{}`, func(server *httptest.Server, requests <-chan httphelpers.HTTPRequestInfo) {
		c := NewClient(server.URL, time.Second, nil)
		c.Put("/v1/admin/users/1/status", `{"status":"DISABLED"}`, nil)
		c.Patch("/assistant/conversations/1", []byte(`{"title":"x"}`), nil)
		c.Delete("/assistant/conversations", nil)

		put := <-requests
		assert.Equal(t, "PUT", put.Request.Method)
		assert.Equal(t, `{"status":"DISABLED"}`, string(put.Body))
		patch := <-requests
		assert.Equal(t, "PATCH", patch.Request.Method)
		assert.Equal(t, `{"title":"x"}`, string(patch.Body))
		del := <-requests
		assert.Equal(t, "DELETE", del.Request.Method)
		assert.Empty(t, del.Body)
	})
}

func TestTokenIsReadBeforeEachRequest(t *testing.T) {
	withRecordingServer(t, 200, `{}`, func(server *httptest.Server, requests <-chan httphelpers.HTTPRequestInfo) {
		tokens := &mutableToken{value: "first"}
		c := NewClient(server.URL, time.Second, tokens)

		c.Get("/a", nil)
		tokens.value = "second"
		c.Get("/b", nil)
		tokens.value = ""
		c.Get("/c", nil)

		assert.Equal(t, "Bearer first", (<-requests).Request.Header.Get("Authorization"))
		assert.Equal(t, "Bearer second", (<-requests).Request.Header.Get("Authorization"))
		assert.Empty(t, (<-requests).Request.Header.Get("Authorization"))
	})
}

type mutableToken struct{ value string }

func (m *mutableToken) Token() string { return m.value }

func TestConnectionFailureYieldsSentinelStatus(t *testing.T) {
	server := httptest.NewServer(httphelpers.HandlerWithStatus(200))
	url := server.URL
	server.Close()

	var logger framework.CapturingLogger
	resp := NewClient(url, time.Second, nil).Get("/auth/login", &logger)
	assert.Equal(t, 0, resp.Status)
	assert.Equal(t, NoStatus, resp.StatusCode())
	assert.Empty(t, resp.Body)
	assert.Error(t, resp.Err)

	var sawFailure bool
	for _, m := range logger.Output() {
		if strings.HasPrefix(m.Message, "<< request failed") {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure)
}

func TestTimeoutYieldsSentinelStatus(t *testing.T) {
	release := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		defer close(release)
		resp := NewClient(server.URL, 50*time.Millisecond, nil).Get("/slow", nil)
		assert.Equal(t, NoStatus, resp.StatusCode())
		assert.Error(t, resp.Err)
	})
}

func TestUnencodableBodyIsReportedAsFailure(t *testing.T) {
	c := NewClient("http://localhost:1", time.Second, nil)
	resp := c.Post("/x", map[string]interface{}{"f": func() {}}, nil)
	assert.Equal(t, 0, resp.Status)
	require.Error(t, resp.Err)
	assert.Contains(t, resp.Err.Error(), "could not encode request body")
}

func TestNewClientDefaultsTimeout(t *testing.T) {
	c := NewClient("http://localhost:8080/api/", 0, nil)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, "http://localhost:8080/api", c.BaseURL())
	assert.Equal(t, "http://localhost:8080/api/auth/login", c.URL("auth/login"))
	assert.Equal(t, "http://localhost:8080/api", c.URL(""))
}

func TestDebugOutputHasCurlLineWithoutToken(t *testing.T) {
	withRecordingServer(t, 200, `{"ok":true}`, func(server *httptest.Server, requests <-chan httphelpers.HTTPRequestInfo) {
		var logger framework.CapturingLogger
		NewClient(server.URL, time.Second, staticToken("super-secret")).
			Post("/courses", map[string]string{"name": "Bob's course"}, &logger)
		<-requests

		var all []string
		for _, m := range logger.Output() {
			all = append(all, m.Message)
		}
		joined := strings.Join(all, "\n")
		assert.NotContains(t, joined, "super-secret")
		assert.Contains(t, joined, `"Authorization: Bearer $TOKEN"`)
		assert.Contains(t, joined, `--data '{"name":"Bob'"'"'s course"}'`)
		assert.Contains(t, joined, `<< 200 {"ok":true}`)
	})
}

func TestDebugOutputRedactsCredentialsAndTokens(t *testing.T) {
	withRecordingServer(t, 200, `{"accessToken":"SECRET-JWT","tokenType":"Bearer"}`,
		func(server *httptest.Server, requests <-chan httphelpers.HTTPRequestInfo) {
			var logger framework.CapturingLogger
			resp := NewClient(server.URL, time.Second, nil).
				Post("/auth/login", servicedef.LoginParams{Identifier: "admin", Password: "hunter2"}, &logger)
			info := <-requests

			assert.Contains(t, string(info.Body), "hunter2")
			assert.Contains(t, string(resp.Body), "SECRET-JWT")

			var all []string
			for _, m := range logger.Output() {
				all = append(all, m.Message)
			}
			joined := strings.Join(all, "\n")
			assert.NotContains(t, joined, "hunter2")
			assert.NotContains(t, joined, "SECRET-JWT")
			assert.Contains(t, joined, `"password":"[REDACTED]"`)
			assert.Contains(t, joined, `"accessToken":"[REDACTED]"`)
			assert.Contains(t, joined, `"identifier":"admin"`)
			assert.Contains(t, joined, `"tokenType":"Bearer"`)
		})
}

func TestRedactBody(t *testing.T) {
	assert.Equal(t, `{"name":"x"}`, string(redactBody([]byte(`{"name":"x"}`))))
	assert.Equal(t, "<html>", string(redactBody([]byte("<html>"))))
	assert.Nil(t, redactBody(nil))

	nested := string(redactBody([]byte(`{"data":{"users":[{"username":"s1","Password":"p1","password2":"kept"}]}}`)))
	assert.NotContains(t, nested, "p1")
	assert.Contains(t, nested, `"Password":"[REDACTED]"`)
	assert.Contains(t, nested, `"password2":"kept"`)

	assert.Equal(t, `{"accessToken":null}`, string(redactBody([]byte(`{"accessToken":null}`))))
}

func TestCurlCommandRedactsBody(t *testing.T) {
	cmd := curlCommand(Request{Method: "POST", Path: "/auth/login", Body: []byte(`{"password":"hunter2"}`)},
		"http://localhost:8080/api/auth/login", false)
	assert.Equal(t,
		`curl -sS -X POST -H 'Accept: application/json' -H 'Content-Type: application/json' `+
			`--data '{"password":"[REDACTED]"}' http://localhost:8080/api/auth/login`,
		cmd)
}

func TestCurlCommand(t *testing.T) {
	cmd := curlCommand(Request{Method: "GET", Path: "/v1/admin/users?page=1&pageSize=5"},
		"http://localhost:8080/api/v1/admin/users?page=1&pageSize=5", false)
	assert.Equal(t,
		"curl -sS -X GET -H 'Accept: application/json' 'http://localhost:8080/api/v1/admin/users?page=1&pageSize=5'",
		cmd)
}

func TestLoggableBodyTruncates(t *testing.T) {
	long := strings.Repeat("x", maxLoggedBody+10)
	s := loggableBody([]byte(long))
	assert.True(t, strings.HasSuffix(s, "...(truncated)"))
	assert.Equal(t, "", loggableBody(nil))
}

func TestAwaitService(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(404), func(server *httptest.Server) {
		var sb strings.Builder
		require.NoError(t, AwaitService(server.URL, time.Second, &sb))
		assert.Contains(t, sb.String(), "Service responded with status 404")
	})
}

func TestAwaitServiceTimesOut(t *testing.T) {
	server := httptest.NewServer(httphelpers.HandlerWithStatus(200))
	url := server.URL
	server.Close()

	var sb strings.Builder
	err := AwaitService(url, 300*time.Millisecond, &sb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out waiting for service")
}

func TestStatusIsSuccess(t *testing.T) {
	assert.True(t, StatusIsSuccess(200))
	assert.True(t, StatusIsSuccess(201))
	assert.False(t, StatusIsSuccess(0))
	assert.False(t, StatusIsSuccess(301))
	assert.False(t, StatusIsSuccess(401))
}
