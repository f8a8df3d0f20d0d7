// Package framework contains the low-level implementation of test harness infrastructure
// that can be reused for different kinds of API contract tests.
//
// The general model is:
//
// 1. The test harness talks to a service under test over HTTP. It knows nothing about the
// service's domain; that is the job of the domain-specific suites.
//
// 2. There is a general notion of a test context which is similar to Go's *testing.T,
// allowing pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results.
//
// 3. Every labelled check made through a context is recorded in the run's Results, so that
// the end-of-run summary can report how many checks passed, failed, or produced warnings.
// A failed check never stops the run; at most it ends the current test function.
//
// The domain-specific code that knows what is being tested is responsible for building
// requests, deciding what to assert, and providing a domain-specific test API on top of
// the test context.
package framework
