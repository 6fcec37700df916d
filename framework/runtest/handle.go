package runtest

import (
	"runtime"
	"time"

	"github.com/testrt/threadharness/framework/opt"
)

// Completion is the value a finished test hands over to the classifier.
type Completion struct {
	Payload  opt.Maybe[string]
	Duration time.Duration
}

// Joiner is a running test whose completion can be polled without blocking.
type Joiner interface {
	// TryJoin returns the completion if the test has finished, or no value if it is still
	// running. A completion is returned at most once.
	TryJoin() (opt.Maybe[Completion], error)
}

// Handle is the Joiner for a test running on its own OS thread.
type Handle struct {
	done       chan struct{}
	completion Completion
	joined     bool
}

// startThread runs the test function on a new goroutine that is locked to its own OS
// thread for the test's whole lifetime. The goroutine exits while still locked, so the
// thread is terminated along with it rather than returned to the scheduler.
func startThread(entry TestFunc, t *T) *Handle {
	h := &Handle{done: make(chan struct{})}
	startTime := time.Now()
	go func() {
		runtime.LockOSThread()
		completed := false
		defer func() {
			h.completion = Completion{
				Payload:  t.finish(recover(), completed),
				Duration: time.Since(startTime),
			}
			close(h.done)
		}()
		entry(t)
		completed = true
	}()
	return h
}

// TryJoin implements Joiner. It must only be called from one goroutine.
func (h *Handle) TryJoin() (opt.Maybe[Completion], error) {
	if h == nil {
		return opt.None[Completion](), ErrNilHandle
	}
	if h.joined {
		return opt.None[Completion](), ErrAlreadyJoined
	}
	select {
	case <-h.done:
		h.joined = true
		return opt.Some(h.completion), nil
	default:
		return opt.None[Completion](), nil
	}
}
