package runtest

import (
	"github.com/testrt/threadharness/framework/opt"
)

// Outcome is the classified result of a finished test: either success, or failure with a
// message.
type Outcome struct {
	failed  bool
	message string
}

// Success returns the successful Outcome.
func Success() Outcome { return Outcome{} }

// Failure returns a failed Outcome carrying a message.
func Failure(message string) Outcome { return Outcome{failed: true, message: message} }

// Failed returns true for a failure.
func (o Outcome) Failed() bool { return o.failed }

// Message returns the failure message, or "" for a success.
func (o Outcome) Message() string { return o.message }

func (o Outcome) String() string {
	if o.failed {
		return "Failure(" + o.message + ")"
	}
	return "Success"
}

// Classify interprets the completion payload of a finished test. An absent payload means
// the test function returned normally without failing; any present payload, even an empty
// one, is a failure message.
func Classify(payload opt.Maybe[string]) Outcome {
	if message, failed := payload.Get(); failed {
		return Failure(message)
	}
	return Success()
}
