package framework

// TestLogger receives a categorized line for everything that happens in a test run.
type TestLogger interface {
	TestStarted(id TestID)
	TestPassed(id TestID, label string)
	TestError(id TestID, err error)
	TestWarning(id TestID, message string)
	TestInfo(id TestID, message string)
	TestFinished(id TestID, failed bool, debugOutput CapturedOutput)
	TestSkipped(id TestID, reason string)
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(TestID)                        {}
func (n nullTestLogger) TestPassed(TestID, string)                 {}
func (n nullTestLogger) TestError(TestID, error)                   {}
func (n nullTestLogger) TestWarning(TestID, string)                {}
func (n nullTestLogger) TestInfo(TestID, string)                   {}
func (n nullTestLogger) TestFinished(TestID, bool, CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                {}
