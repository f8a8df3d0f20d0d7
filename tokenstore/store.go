// Package tokenstore persists the access token obtained by the most recent login.
//
// There is at most one stored token at a time. Every login overwrites it, and the HTTP
// client reads it again before each request, so any request issued after a login carries
// that login's token until the next login or until the token is cleared.
package tokenstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fin-c3po/api-contract-tests/framework"
	"github.com/fin-c3po/api-contract-tests/jsonpath"
)

// TokenField is the login response field that holds the bearer token.
const TokenField = "accessToken"

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Save extracts the access token from a login response body and replaces any stored token.
// If the body has no token, the problem is logged and the previous token is left alone;
// callers are expected to have asserted that the field is present.
func (s *Store) Save(loginBody []byte, logger framework.Logger) bool {
	if logger == nil {
		logger = framework.NullLogger()
	}
	doc, err := jsonpath.Parse(loginBody)
	if err != nil {
		logger.Printf("Not saving token: %s", err)
		return false
	}
	v, ok := jsonpath.Lookup(doc, TokenField)
	if !ok || v.StringValue() == "" {
		logger.Printf("Not saving token: login response has no %s", TokenField)
		return false
	}
	if err := s.write(v.StringValue()); err != nil {
		logger.Printf("Not saving token: %s", err)
		return false
	}
	if claims, err := Inspect(v.StringValue()); err == nil {
		logger.Printf("Saved token for subject %q, %s", claims.Subject, claims.describeExpiry(time.Now()))
	} else {
		logger.Printf("Saved opaque token (%s)", err)
	}
	return true
}

func (s *Store) write(token string) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("could not create token directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("could not write token file: %w", err)
	}
	return nil
}

// Token returns the stored token, or "" if there is none.
func (s *Store) Token() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Clear removes the stored token. A missing token file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove token file: %w", err)
	}
	return nil
}

// Stash removes the stored token and returns a function that puts it back. It is used to
// issue requests as an unauthenticated client in the middle of a suite.
func (s *Store) Stash() (restore func()) {
	previous := s.Token()
	_ = s.Clear()
	return func() {
		if previous == "" {
			_ = s.Clear()
			return
		}
		_ = s.write(previous)
	}
}

// Claims is the subset of JWT claims the harness reports in debug output.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

func (c Claims) describeExpiry(now time.Time) string {
	if c.ExpiresAt.IsZero() {
		return "no expiry"
	}
	if !c.ExpiresAt.After(now) {
		return fmt.Sprintf("EXPIRED at %s", c.ExpiresAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("expires in %s", c.ExpiresAt.Sub(now).Round(time.Second))
}

// Inspect decodes the claims of a JWT without verifying its signature. The harness has no
// way to verify tokens; this is only for diagnostics.
func Inspect(token string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Claims{}, fmt.Errorf("not a JWT: %w", err)
	}
	var ret Claims
	if sub, err := claims.GetSubject(); err == nil {
		ret.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ret.ExpiresAt = exp.Time
	}
	return ret, nil
}
