// Package apiclient is the HTTP client the suites use to talk to the service under test.
//
// It never returns transport errors to the caller as Go errors that must be handled before
// continuing. Instead, a request that could not be completed yields a Response whose Status
// is zero, which suites assert against like any other status code.
package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alessio/shellescape"

	"github.com/fin-c3po/api-contract-tests/framework"
)

// DefaultTimeout applies to every request unless the client is built with another value.
const DefaultTimeout = 30 * time.Second

// NoStatus is the sentinel used when no HTTP response was received at all.
const NoStatus = "000"

const maxLoggedBody = 2000

// TokenSource supplies the bearer token for each request. An empty string means the request
// is sent without an Authorization header.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

type Request struct {
	Method string
	Path   string
	Body   []byte
}

type Response struct {
	Status int
	Body   []byte
	Err    error
}

// StatusCode renders the status the way it appears in test output: the numeric code, or
// "000" if the request never got a response.
func (r Response) StatusCode() string {
	if r.Status == 0 {
		return NoStatus
	}
	return strconv.Itoa(r.Status)
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL returns the absolute URL for a path relative to the base URL.
func (c *Client) URL(path string) string {
	if path == "" {
		return c.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// Send performs a single attempt of the request. Transport failures are reported in the
// returned Response rather than as an error.
func (c *Client) Send(r Request, logger framework.Logger) Response {
	if logger == nil {
		logger = framework.NullLogger()
	}
	url := c.URL(r.Path)
	token := c.token()

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequest(r.Method, url, body)
	if err != nil {
		logger.Printf("Could not build request %s %s: %s", r.Method, url, err)
		return Response{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger.Printf(">> %s %s%s", r.Method, url, loggableBody(r.Body))
	logger.Printf("   %s", curlCommand(r, url, token != ""))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Printf("<< request failed: %s", err)
		return Response{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Printf("<< %d, but body could not be read: %s", resp.StatusCode, err)
		return Response{Err: fmt.Errorf("error reading response body: %w", err)}
	}
	logger.Printf("<< %d%s", resp.StatusCode, loggableBody(data))
	return Response{Status: resp.StatusCode, Body: data}
}

// Do marshals body to JSON (a nil body means no body at all) and sends the request.
// A body that cannot be marshalled is a programming error in the suite and is reported the
// same way as a transport failure.
func (c *Client) Do(method, path string, body interface{}, logger framework.Logger) Response {
	var data []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		data = b
	case string:
		data = []byte(b)
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			if logger != nil {
				logger.Printf("Could not encode request body for %s %s: %s", method, path, err)
			}
			return Response{Err: fmt.Errorf("could not encode request body: %w", err)}
		}
		data = encoded
	}
	return c.Send(Request{Method: method, Path: path, Body: data}, logger)
}

func (c *Client) Get(path string, logger framework.Logger) Response {
	return c.Do(http.MethodGet, path, nil, logger)
}

func (c *Client) Post(path string, body interface{}, logger framework.Logger) Response {
	return c.Do(http.MethodPost, path, body, logger)
}

func (c *Client) Put(path string, body interface{}, logger framework.Logger) Response {
	return c.Do(http.MethodPut, path, body, logger)
}

func (c *Client) Patch(path string, body interface{}, logger framework.Logger) Response {
	return c.Do(http.MethodPatch, path, body, logger)
}

func (c *Client) Delete(path string, logger framework.Logger) Response {
	return c.Do(http.MethodDelete, path, nil, logger)
}

// loggableBody renders a body for debug output, with secret properties redacted.
func loggableBody(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	s := string(redactBody(data))
	if len(s) > maxLoggedBody {
		s = s[:maxLoggedBody] + "...(truncated)"
	}
	return " " + s
}

// curlCommand renders an equivalent curl invocation so that a failing request can be
// reproduced by hand. Neither the bearer token nor any secret property of the body is
// written to the debug output.
func curlCommand(r Request, url string, withToken bool) string {
	var b commandBuilder
	b.add("curl", "-sS", "-X", r.Method)
	b.add("-H", "Accept: application/json")
	if r.Body != nil {
		b.add("-H", "Content-Type: application/json")
	}
	if withToken {
		b.addRaw("-H", `"Authorization: Bearer $TOKEN"`)
	}
	if r.Body != nil {
		b.add("--data", string(redactBody(r.Body)))
	}
	b.add(url)
	return b.String()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b *commandBuilder) addRaw(args ...string) {
	*b = append(*b, args...)
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
