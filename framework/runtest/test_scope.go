package runtest

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/testrt/threadharness/framework"
	"github.com/testrt/threadharness/framework/opt"
	"github.com/testrt/threadharness/framework/telemetry"
)

// TestFunc is the entry point of a test.
type TestFunc func(t *T)

const (
	failedWithoutMessage    = "test failed"
	exitedWithoutCompleting = "test exited without completing"
)

// T represents the scope of one running test. It is very similar to Go's testing.T type,
// and like testing.T it must only be used from the test's own goroutine: FailNow and the
// methods that call it terminate that goroutine.
type T struct {
	origin      telemetry.Origin
	stackSize   int
	output      Sink
	testLogger  TestLogger
	debugLogger framework.CapturingLogger
	failed      bool
	failure     opt.Maybe[string]
	helperFns   []string
	emitErr     error
}

// abortSignal is the panic value FailNow uses to unwind a test function.
type abortSignal struct {
	t *T
}

func newT(config *Config, d Descriptor) *T {
	return &T{
		origin:     telemetry.Origin{Program: config.Program, Function: d.Name},
		stackSize:  d.StackSize,
		output:     config.Output,
		testLogger: config.TestLogger,
	}
}

// Name returns the name the test was declared with.
func (t *T) Name() string {
	return t.origin.Function
}

// Program returns the program identifier that all of this test's records carry.
func (t *T) Program() string {
	return t.origin.Program
}

// StackSize returns the stack size, in bytes, that the catalog requested for this test.
func (t *T) StackSize() int {
	return t.stackSize
}

// Assert terminates the test with the message "Assertion failed at <file>:<line>" if the
// condition is false. The location is that of the caller, skipping functions marked with
// Helper.
func (t *T) Assert(condition bool) {
	if !condition {
		t.abort("Assertion failed at " + findCaller(t.helperFns).String())
	}
}

// Require terminates the test with a formatted message if the condition is false.
func (t *T) Require(condition bool, format string, args ...interface{}) {
	if !condition {
		t.abort(fmt.Sprintf(format, args...))
	}
}

// Errorf reports a test failure. It is equivalent to Go's testing.T.Errorf. It does not
// cause the test to terminate; the first message reported this way becomes the failure
// message unless the test later terminates with a message of its own.
//
// You will rarely use this method directly; it is part of this type's implementation of the
// interfaces assert.TestingT and require.TestingT, allowing it to be called from testify.
func (t *T) Errorf(format string, args ...interface{}) {
	t.failed = true
	message := condenseMessage(fmt.Sprintf(format, args...))
	if !t.failure.IsDefined() {
		t.failure = opt.Some(message)
	}
	t.testLogger.TestError(t.Name(), errors.New(message))
}

// Fail marks the test as failed without terminating it.
func (t *T) Fail() {
	t.failed = true
}

// Failed returns true if the test has been marked as failed.
func (t *T) Failed() bool {
	return t.failed
}

// FailNow causes the test to immediately terminate and be marked as failed.
func (t *T) FailNow() {
	t.abort("")
}

func (t *T) abort(message string) {
	t.failed = true
	if message != "" {
		t.failure = opt.Some(message)
		t.testLogger.TestError(t.Name(), errors.New(message))
	}
	panic(abortSignal{t})
}

// Debugf writes a Debug record for this test to the output stream.
func (t *T) Debugf(format string, args ...interface{}) {
	t.log(telemetry.LevelDebug, format, args...)
}

// Infof writes an Info record for this test to the output stream.
func (t *T) Infof(format string, args ...interface{}) {
	t.log(telemetry.LevelInfo, format, args...)
}

// Warnf writes a Warning record for this test to the output stream. It does not fail the
// test.
func (t *T) Warnf(format string, args ...interface{}) {
	t.log(telemetry.LevelWarning, format, args...)
}

func (t *T) log(level telemetry.Level, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	t.debugLogger.Capture(level.String(), message)
	err := t.output.Emit(telemetry.Log{Origin: t.origin, Level: level, Message: message})
	if err != nil && t.emitErr == nil {
		t.emitErr = err
	}
}

// DebugLogger returns a Logger whose output is kept with the test and shown by the console
// logger when requested, but is not written to the output stream.
func (t *T) DebugLogger() framework.Logger {
	return &t.debugLogger
}

// Helper marks the function that calls it as a test helper, so that Assert reports the
// location of the helper's caller instead. Equivalent to Go's testing.T.Helper().
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1) // 0 is Helper() itself, 1 is who called it
	if !ok {
		return
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return
	}
	t.helperFns = append(t.helperFns, f.Name())
}

// finish turns the way the test function ended into its completion payload: no payload if
// it returned normally without failing, otherwise the failure message.
func (t *T) finish(recovered interface{}, completed bool) opt.Maybe[string] {
	switch {
	case recovered != nil:
		if sig, ok := recovered.(abortSignal); !ok || sig.t != t {
			t.failed = true
			message := fmt.Sprintf("unexpected panic in test: %+v", recovered)
			t.failure = opt.Some(message)
			t.debugLogger.Capture("panic", message+"\n"+string(debug.Stack()))
		}
	case !completed:
		// runtime.Goexit was called from the test function
		t.failed = true
		if !t.failure.IsDefined() {
			t.failure = opt.Some(exitedWithoutCompleting)
		}
	}
	if !t.failed {
		return opt.None[string]()
	}
	return opt.Some(t.failure.OrElse(failedWithoutMessage))
}
