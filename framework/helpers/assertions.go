package helpers

import (
	"time"
)

// pollUntil calls condition right away and then once per interval until it returns true or
// the timeout elapses. It returns the last result.
func pollUntil(condition func() bool, timeout, interval time.Duration) bool {
	if condition() {
		return true
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-deadline.C:
			return condition()
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

// AssertEventually is like assert.Eventually from stretchr/testify/assert, except that
// condition is called on the caller's goroutine. A test running under runtest may only fail
// from its own goroutine, so the testify version can not be used there.
func AssertEventually(
	t TestContext,
	condition func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) bool {
	t.Helper()
	if pollUntil(condition, timeout, interval) {
		return true
	}
	t.Errorf(failureMsgFormat, failureMsgArgs...)
	return false
}

// RequireEventually is AssertEventually, except that the test also terminates if the
// timeout elapses.
func RequireEventually(
	t TestContext,
	condition func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) {
	t.Helper()
	if !AssertEventually(t, condition, timeout, interval, failureMsgFormat, failureMsgArgs...) {
		t.FailNow()
	}
}

// RequireReturns runs action on another goroutine and returns its result, or fails the test
// and terminates it if action has not returned within the timeout. The goroutine is
// abandoned in that case.
func RequireReturns[V any](t TestContext, timeout time.Duration, action func() V) V {
	t.Helper()
	ch := make(chan V, 1)
	go func() {
		ch <- action()
	}()
	return RequireValueWithMessage(t, ch, timeout, "action did not return within %s", timeout)
}
