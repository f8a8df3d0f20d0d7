package framework

import (
	"fmt"
	"io"
	"strings"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult
	Checks   []CheckResult
	Tally    Tally
}

type TestResult struct {
	TestID     TestID
	Errors     []error
	Warnings   []string
	Skipped    bool
	SkipReason string
}

// CheckResult is the outcome of a single labelled assertion.
type CheckResult struct {
	TestID  TestID
	Label   string
	Passed  bool
	Message string
}

// Tally counts assertion outcomes across a run. Every check increments exactly one of
// Passed or Failed; warnings and skipped tests are counted separately and never make a
// run fail.
type Tally struct {
	Passed   int
	Failed   int
	Warnings int
	Skipped  int
}

func (t Tally) Total() int {
	return t.Passed + t.Failed
}

func (r Results) OK() bool {
	return len(r.Failures) == 0 && r.Tally.Failed == 0
}

type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

func (t TestID) Plus(name string) TestID {
	return TestID{Path: append(append([]string(nil), t.Path...), name)}
}

type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}

// PrintResults writes the end-of-run summary.
func PrintResults(results Results, out io.Writer) {
	fmt.Fprintln(out, "==================================")
	fmt.Fprintln(out, "Test Summary")
	fmt.Fprintln(out, "==================================")
	fmt.Fprintf(out, "Checks:   %d\n", results.Tally.Total())
	fmt.Fprintf(out, "Passed:   %d\n", results.Tally.Passed)
	fmt.Fprintf(out, "Failed:   %d\n", results.Tally.Failed)
	fmt.Fprintf(out, "Warnings: %d\n", results.Tally.Warnings)
	fmt.Fprintf(out, "Skipped:  %d\n", results.Tally.Skipped)

	if len(results.Failures) == 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "All tests passed")
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "FAILED TESTS (%d):\n", len(results.Failures))
	for _, f := range results.Failures {
		fmt.Fprintf(out, "  * %s\n", f.TestID)
		for _, err := range f.Errors {
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Fprintf(out, "      %s\n", line)
			}
		}
	}
}
