package runtest

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/testrt/threadharness/framework/catalog"
)

// Bounds for a requested stack size. The minimum matches PTHREAD_STACK_MIN on Linux; the
// maximum is the runtime's default goroutine stack limit on 64-bit platforms.
//
// Goroutine stacks start small and grow on demand, so a requested size is only checked
// against these bounds and used as the process-wide growth limit. On 64-bit platforms that
// limit already is MaxStackSize, so there a valid request changes nothing at run time; on
// 32-bit platforms, where the default limit is 250 MB, a larger request raises it.
const (
	MinStackSize = 16 * catalog.KB
	MaxStackSize = 1024 * catalog.MB
)

var stackCeilingLock sync.Mutex //nolint:gochecknoglobals

// ensureStackCeiling makes sure the runtime lets a goroutine's stack grow to at least size
// bytes. The ceiling is process-wide and is never lowered here.
func ensureStackCeiling(size int) {
	stackCeilingLock.Lock()
	defer stackCeilingLock.Unlock()
	if previous := debug.SetMaxStack(size); previous > size {
		debug.SetMaxStack(previous)
	}
}

func validateStackSize(size int) error {
	if size < MinStackSize || size > MaxStackSize {
		return fmt.Errorf("%w: %d bytes (allowed %d to %d)", ErrInvalidStackSize, size, MinStackSize, MaxStackSize)
	}
	return nil
}
