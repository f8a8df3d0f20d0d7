// Package apitests contains the API contract tests themselves and their supporting API.
//
// Each tests_*.go file holds one suite. Suites talk to the service only through the T type,
// which wraps the lower-level framework package with HTTP request helpers, login handling,
// and assertions that record every check in the run's tally.
package apitests
