package framework

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLine struct {
	kind    string
	id      string
	message string
}

type recordingTestLogger struct {
	lines []recordedLine
}

func (r *recordingTestLogger) add(kind string, id TestID, message string) {
	r.lines = append(r.lines, recordedLine{kind: kind, id: id.String(), message: message})
}

func (r *recordingTestLogger) TestStarted(id TestID)               { r.add("started", id, "") }
func (r *recordingTestLogger) TestPassed(id TestID, label string)  { r.add("pass", id, label) }
func (r *recordingTestLogger) TestError(id TestID, err error)      { r.add("error", id, err.Error()) }
func (r *recordingTestLogger) TestWarning(id TestID, msg string)   { r.add("warn", id, msg) }
func (r *recordingTestLogger) TestInfo(id TestID, msg string)      { r.add("info", id, msg) }
func (r *recordingTestLogger) TestSkipped(id TestID, why string)   { r.add("skipped", id, why) }
func (r *recordingTestLogger) TestFinished(id TestID, failed bool, _ CapturedOutput) {
	r.add("finished", id, fmt.Sprint(failed))
}

func (r *recordingTestLogger) kinds() []string {
	var ret []string
	for _, l := range r.lines {
		ret = append(ret, l.kind)
	}
	return ret
}

func TestPassAndFailEachIncrementOneBucket(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Pass("first")
			c.Fail("second", "expected '200', got '500'")
			c.Pass("third")
		})
	})

	assert.Equal(t, Tally{Passed: 2, Failed: 1}, results.Tally)
	require.Len(t, results.Checks, 3)
	assert.True(t, results.Checks[0].Passed)
	assert.False(t, results.Checks[1].Passed)
	assert.Equal(t, "second", results.Checks[1].Label)
	assert.Equal(t, "second (expected '200', got '500')", results.Checks[1].Message)
	assert.False(t, results.OK())
}

func TestFailedCheckDoesNotStopTestFunction(t *testing.T) {
	reached := false
	results := Run(nil, nil, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Errorf("oops")
			reached = true
		})
	})
	assert.True(t, reached)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "a", results.Failures[0].TestID.String())
}

func TestFailNowEndsOnlyTheCurrentTest(t *testing.T) {
	var ran []string
	results := Run(nil, nil, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Errorf("bad status")
			c.FailNow()
			ran = append(ran, "a-after-failnow")
		})
		c.Run("b", func(c *Context) {
			ran = append(ran, "b")
			c.Pass("fine")
		})
	})
	assert.Equal(t, []string{"b"}, ran)
	assert.Equal(t, 1, results.Tally.Failed)
	assert.Equal(t, 1, results.Tally.Passed)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "a", results.Failures[0].TestID.String())
}

func TestFailNowWithoutMessageRecordsGenericError(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.FailNow()
		})
	})
	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Equal(t, "test failed with no failure message", results.Failures[0].Errors[0].Error())
}

func TestUnexpectedPanicIsRecordedAsFailure(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("a", func(c *Context) {
			panic(errors.New("kaboom"))
		})
		c.Run("b", func(c *Context) {
			c.Pass("still running")
		})
	})
	require.Len(t, results.Failures, 1)
	assert.True(t, strings.HasPrefix(results.Failures[0].Errors[0].Error(), "unexpected panic in test: kaboom"))
	assert.Equal(t, 1, results.Tally.Passed)
}

func TestSkipIsNotAFailure(t *testing.T) {
	logger := &recordingTestLogger{}
	results := Run(nil, logger, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Warnf("no course id")
			c.SkipWithReason("no course id")
		})
	})
	assert.True(t, results.OK())
	assert.Equal(t, Tally{Warnings: 1, Skipped: 1}, results.Tally)
	require.Len(t, results.Tests, 1)
	assert.True(t, results.Tests[0].Skipped)
	assert.Equal(t, "no course id", results.Tests[0].SkipReason)
	assert.Equal(t, []string{"started", "warn", "skipped"}, logger.kinds())
}

func TestDeferredActionsRunInReverseOrderEvenAfterFailNow(t *testing.T) {
	var order []string
	Run(nil, nil, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Defer(func() { order = append(order, "first") })
			c.Defer(func() { order = append(order, "second") })
			c.FailNow()
		})
	})
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestFilterExcludesTest(t *testing.T) {
	var filters RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("^a/b$"))
	logger := &recordingTestLogger{}
	var ran []string
	results := Run(filters.AsFilter, logger, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Run("b", func(c *Context) { ran = append(ran, "b") })
			c.Run("c", func(c *Context) { ran = append(ran, "c") })
		})
	})
	assert.Equal(t, []string{"c"}, ran)
	assert.Equal(t, 1, results.Tally.Skipped)
	assert.Contains(t, logger.lines, recordedLine{kind: "skipped", id: "a/b", message: "excluded by filter parameters"})
}

func TestSubtestIDsDoNotShareBackingArray(t *testing.T) {
	var ids []string
	Run(nil, nil, func(c *Context) {
		c.Run("suite", func(c *Context) {
			c.Run("one", func(c *Context) { ids = append(ids, c.ID().String()) })
			c.Run("two", func(c *Context) { ids = append(ids, c.ID().String()) })
		})
	})
	assert.Equal(t, []string{"suite/one", "suite/two"}, ids)
}

func TestDebugOutputIsPassedToLoggerOnFinish(t *testing.T) {
	var captured CapturedOutput
	logger := &capturingFinishLogger{onFinish: func(out CapturedOutput) { captured = out }}
	Run(nil, logger, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Debug("sent %s", "GET /courses")
		})
	})
	require.Len(t, captured, 1)
	assert.Equal(t, "sent GET /courses", captured[0].Message)
}

type capturingFinishLogger struct {
	nullTestLogger
	onFinish func(CapturedOutput)
}

func (c *capturingFinishLogger) TestFinished(_ TestID, _ bool, out CapturedOutput) {
	c.onFinish(out)
}
