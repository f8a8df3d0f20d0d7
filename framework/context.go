package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
)

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
}

// Context is the framework-level state of one test or subtest. Domain-specific test APIs
// wrap it; see the apitests package.
type Context struct {
	env         *environment
	id          TestID
	debugLogger CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	warnings    []string
	cleanups    []func()
}

// Run executes the top-level test action and returns the accumulated results of it and of
// every subtest it starts.
func Run(
	filter Filter,
	testLogger TestLogger,
	action func(*Context),
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}
	c := &Context{env: env}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		if r := recover(); r != nil {
			if !c.skipped {
				var addError error
				if _, ok := r.(*Context); ok {
					if len(c.errors) == 0 {
						addError = errors.New("test failed with no failure message")
					}
				} else {
					addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
				}
				if addError != nil {
					c.recordFailure("", addError)
				}
				c.failed = true
			}
		}
		c.runCleanups()

		if len(c.id.Path) == 0 && !c.failed {
			return
		}
		result := TestResult{
			TestID:     c.id,
			Errors:     c.errors,
			Warnings:   c.warnings,
			Skipped:    c.skipped,
			SkipReason: c.skipReason,
		}
		c.env.results.Tests = append(c.env.results.Tests, result)
		if c.failed {
			c.env.results.Failures = append(c.env.results.Failures, result)
		}
		if c.skipped {
			c.env.results.Tally.Skipped++
		}
	}()

	action(c)
}

func (c *Context) runCleanups() {
	for len(c.cleanups) > 0 {
		last := c.cleanups[len(c.cleanups)-1]
		c.cleanups = c.cleanups[:len(c.cleanups)-1]
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.recordFailure("", fmt.Errorf("unexpected panic in deferred test action: %+v", r))
					c.failed = true
				}
			}()
			last()
		}()
	}
}

func (c *Context) ID() TestID {
	return c.id
}

// Run runs a subtest. Failures in the subtest are recorded but do not stop the caller.
func (c *Context) Run(name string, action func(*Context)) {
	id := c.id.Plus(name)

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.results.Tally.Skipped++
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	c1 := &Context{
		id:  id,
		env: c.env,
	}
	c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		c.env.testLogger.TestFinished(id, c1.failed, c1.debugLogger.Output())
	}
}

// Pass records a successful check.
func (c *Context) Pass(label string) {
	c.env.results.Tally.Passed++
	c.env.results.Checks = append(c.env.results.Checks, CheckResult{TestID: c.id, Label: label, Passed: true})
	c.env.testLogger.TestPassed(c.id, label)
}

// Fail records a failed check. The test keeps running.
func (c *Context) Fail(label, detail string) {
	message := label
	if detail != "" {
		message = fmt.Sprintf("%s (%s)", label, detail)
	}
	c.failed = true
	c.recordFailure(label, errors.New(message))
}

// Errorf records a failed check without a label. It is what the assert and require
// packages call.
func (c *Context) Errorf(format string, args ...interface{}) {
	c.failed = true
	c.recordFailure("", fmt.Errorf(format, args...))
}

func (c *Context) recordFailure(label string, err error) {
	c.errors = append(c.errors, err)
	c.env.results.Tally.Failed++
	c.env.results.Checks = append(c.env.results.Checks,
		CheckResult{TestID: c.id, Label: label, Message: err.Error()})
	c.env.testLogger.TestError(c.id, err)
}

func (c *Context) Warnf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	c.warnings = append(c.warnings, message)
	c.env.results.Tally.Warnings++
	c.env.testLogger.TestWarning(c.id, message)
}

func (c *Context) Infof(format string, args ...interface{}) {
	c.env.testLogger.TestInfo(c.id, fmt.Sprintf(format, args...))
}

func (c *Context) Failed() bool {
	return c.failed
}

func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// Defer schedules an action to run when the current test function exits, however it exits.
// Deferred actions run in last-in-first-out order.
func (c *Context) Defer(action func()) {
	c.cleanups = append(c.cleanups, action)
}

func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}
