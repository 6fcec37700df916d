package runtest

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/testrt/threadharness/framework/telemetry"
)

type running struct {
	descriptor Descriptor
	handle     Joiner
	scope      *T
}

// launch registers and starts every test of the catalog in declaration order. Every
// descriptor is checked before anything is written, so a catalog that can not be fully
// started produces no records at all; and every Register record is written before the
// first test starts, so no test's own records can appear among them.
func (r *runner) launch(tests Catalog) ([]running, error) {
	descriptors := tests.Enumerate()
	if err := validateCatalog(descriptors, r.threadLimit()); err != nil {
		r.config.Loggers.Errorf("Not starting any tests: %s", err)
		return nil, err
	}

	ceiling := 0
	for _, d := range descriptors {
		_ = r.emit(telemetry.Register{Origin: r.origin(d.Name)})
		ceiling = max(ceiling, d.StackSize)
	}
	if ceiling > 0 {
		ensureStackCeiling(ceiling)
	}

	ret := make([]running, 0, len(descriptors))
	for _, d := range descriptors {
		t := newT(&r.config, d)
		r.config.TestLogger.TestStarted(d.Name)
		r.config.Metrics.TestLaunched(d.Name)
		ret = append(ret, running{descriptor: d, handle: startThread(d.Entry, t), scope: t})
	}
	r.config.Loggers.Debugf("Launched %d tests", len(ret))
	return ret, nil
}

// threadLimit returns how many OS threads the process may have in total: the runtime's
// limit, or Config.ThreadLimit if that is lower.
func (r *runner) threadLimit() int {
	limit := runtimeThreadLimit()
	if r.config.ThreadLimit > 0 {
		limit = min(limit, r.config.ThreadLimit)
	}
	return limit
}

var threadLimitLock sync.Mutex //nolint:gochecknoglobals

// runtimeThreadLimit reads the limit set by debug.SetMaxThreads without changing it.
func runtimeThreadLimit() int {
	threadLimitLock.Lock()
	defer threadLimitLock.Unlock()
	limit := debug.SetMaxThreads(1 << 30)
	debug.SetMaxThreads(limit)
	return limit
}

// threadReserve is the number of threads kept free for the runtime itself and for the
// controlling goroutine.
func threadReserve() int {
	return runtime.GOMAXPROCS(0) + 16
}

// validateCatalog checks every descriptor, and that one locked thread per test fits within
// threadLimit. Exceeding the runtime's thread limit is a fatal runtime error that can not be
// recovered from, so it has to be ruled out before any thread is started.
func validateCatalog(descriptors []Descriptor, threadLimit int) error {
	available := max(threadLimit-threadReserve(), 0)
	seen := make(map[string]bool, len(descriptors))
	for i, d := range descriptors {
		if err := validateDescriptor(d, seen); err != nil {
			return &StartError{Test: d.Name, Index: i, Err: err}
		}
		if i >= available {
			return &StartError{Test: d.Name, Index: i, Err: fmt.Errorf(
				"%w: %d tests need their own thread but only %d of %d threads are available",
				ErrThreadLimit, len(descriptors), available, threadLimit)}
		}
		seen[d.Name] = true
	}
	return nil
}

func validateDescriptor(d Descriptor, seen map[string]bool) error {
	switch {
	case d.Entry == nil:
		return ErrNilEntry
	case d.Name == "":
		return ErrEmptyName
	case strings.IndexByte(d.Name, 0) >= 0:
		return ErrInvalidName
	case len(d.Name) >= telemetry.FunctionNameSize:
		return ErrNameTooLong
	case seen[d.Name]:
		return ErrDuplicateName
	}
	return validateStackSize(d.StackSize)
}
