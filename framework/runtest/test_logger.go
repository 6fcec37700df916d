package runtest

import (
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/testrt/threadharness/framework"
)

var consoleTestStartedColor = color.New(color.Faint, color.FgBlue) //nolint:gochecknoglobals
var consoleTestErrorColor = color.New(color.FgYellow)              //nolint:gochecknoglobals
var consoleTestFailedColor = color.New(color.FgRed)                //nolint:gochecknoglobals
var consoleTestPassedColor = color.New(color.FgGreen)              //nolint:gochecknoglobals
var consoleDebugOutputColor = color.New(color.Faint)               //nolint:gochecknoglobals
var allTestsPassedColor = color.New(color.FgGreen)                 //nolint:gochecknoglobals

// TestLogger receives human-oriented status information about a run. TestError is called
// from the failing test's own goroutine; the other methods are called from the goroutine
// that called Run.
type TestLogger interface {
	TestStarted(name string)
	TestError(name string, err error)
	TestFinished(result TestResult, debugOutput framework.CapturedOutput)
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(string)                                {}
func (n nullTestLogger) TestError(string, error)                           {}
func (n nullTestLogger) TestFinished(TestResult, framework.CapturedOutput) {}

// ConsoleTestLogger prints test progress to a terminal. It writes to Out, or to the
// standard error stream if Out is nil, so that it never mixes with telemetry written to
// the standard output.
type ConsoleTestLogger struct {
	Out                  io.Writer
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
	lock                 sync.Mutex
}

func (c *ConsoleTestLogger) out() io.Writer {
	if c.Out == nil {
		return color.Error
	}
	return c.Out
}

func (c *ConsoleTestLogger) TestStarted(name string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, _ = consoleTestStartedColor.Fprintf(c.out(), "[%s]\n", name)
}

func (c *ConsoleTestLogger) TestError(name string, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, line := range strings.Split(err.Error(), "\n") {
		_, _ = consoleTestErrorColor.Fprintf(c.out(), "  [%s] %s\n", name, line)
	}
}

func (c *ConsoleTestLogger) TestFinished(result TestResult, debugOutput framework.CapturedOutput) {
	c.lock.Lock()
	defer c.lock.Unlock()
	failed := result.Outcome.Failed()
	if failed {
		_, _ = consoleTestFailedColor.Fprintf(c.out(), "  FAILED: %s (%s): %s\n",
			result.Name, result.Duration, result.Outcome.Message())
	} else {
		_, _ = consoleTestPassedColor.Fprintf(c.out(), "  PASSED: %s (%s)\n", result.Name, result.Duration)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		_, _ = consoleDebugOutputColor.Fprintln(c.out(), debugOutput.ToString("    DEBUG "))
	}
}

// MultiTestLogger forwards every call to each of its loggers in turn.
type MultiTestLogger []TestLogger

func (m MultiTestLogger) TestStarted(name string) {
	for _, l := range m {
		l.TestStarted(name)
	}
}

func (m MultiTestLogger) TestError(name string, err error) {
	for _, l := range m {
		l.TestError(name, err)
	}
}

func (m MultiTestLogger) TestFinished(result TestResult, debugOutput framework.CapturedOutput) {
	for _, l := range m {
		l.TestFinished(result, debugOutput)
	}
}

// PrintResults writes a summary of the run.
func PrintResults(w io.Writer, results Results) {
	if results.OK() {
		_, _ = allTestsPassedColor.Fprintf(w, "All tests passed (%d)\n", len(results.Tests))
		return
	}
	_, _ = consoleTestFailedColor.Fprintf(w, "FAILED TESTS (%d of %d):\n", len(results.Failures), len(results.Tests))
	for _, f := range results.Failures {
		_, _ = consoleTestFailedColor.Fprintf(w, "  * %s: %s\n", f.Name, f.Outcome.Message())
	}
}
