package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/fin-c3po/api-contract-tests/framework"
)

// ConsoleTestLogger prints one tagged line per event, indented by test depth.
type ConsoleTestLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool

	out io.Writer

	header, pass, fail, warn, info *color.Color
}

func NewConsoleTestLogger(out io.Writer, useColor bool) *ConsoleTestLogger {
	c := &ConsoleTestLogger{
		out:    out,
		header: color.New(color.Bold),
		pass:   color.New(color.FgGreen),
		fail:   color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow),
		info:   color.New(color.FgCyan),
	}
	for _, col := range []*color.Color{c.header, c.pass, c.fail, c.warn, c.info} {
		if useColor {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

func indent(id framework.TestID) string {
	if len(id.Path) <= 1 {
		return ""
	}
	return strings.Repeat("  ", len(id.Path)-1)
}

func (c *ConsoleTestLogger) TestStarted(id framework.TestID) {
	if len(id.Path) == 1 {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, c.header.Sprintf("=== %s ===", id))
		return
	}
	fmt.Fprintf(c.out, "%s[%s]\n", indent(id), id.Path[len(id.Path)-1])
}

func (c *ConsoleTestLogger) TestPassed(id framework.TestID, label string) {
	fmt.Fprintf(c.out, "%s  %s %s\n", indent(id), c.pass.Sprint("[PASS]"), label)
}

func (c *ConsoleTestLogger) TestError(id framework.TestID, err error) {
	lines := strings.Split(err.Error(), "\n")
	fmt.Fprintf(c.out, "%s  %s %s\n", indent(id), c.fail.Sprint("[FAIL]"), lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(c.out, "%s         %s\n", indent(id), line)
	}
}

func (c *ConsoleTestLogger) TestWarning(id framework.TestID, message string) {
	fmt.Fprintf(c.out, "%s  %s %s\n", indent(id), c.warn.Sprint("[WARN]"), message)
}

func (c *ConsoleTestLogger) TestInfo(id framework.TestID, message string) {
	fmt.Fprintf(c.out, "%s  %s %s\n", indent(id), c.info.Sprint("[INFO]"), message)
}

func (c *ConsoleTestLogger) TestFinished(id framework.TestID, failed bool, debugOutput framework.CapturedOutput) {
	if failed {
		fmt.Fprintf(c.out, "%s  %s\n", indent(id), c.fail.Sprintf("FAILED: %s", id))
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(c.out, indent(id)+"    DEBUG ")
	}
}

func (c *ConsoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	if reason == "" {
		fmt.Fprintf(c.out, "%s  SKIPPED: %s\n", indent(id), id)
	} else {
		fmt.Fprintf(c.out, "%s  SKIPPED: %s (%s)\n", indent(id), id, reason)
	}
}
