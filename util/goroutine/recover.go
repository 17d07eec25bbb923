// Package goroutine holds helpers for background goroutines: panic recovery
// for long-running services and leak assertions for tests.
package goroutine

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// StackTraceBufferSize is the buffer size for stack trace collection
const StackTraceBufferSize = 4096

// Stack returns the calling goroutine's stack, truncated to StackTraceBufferSize.
func Stack() string {
	buf := make([]byte, StackTraceBufferSize)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Recover logs a panic in the goroutine that defers it. It must be called
// directly by defer.
func Recover(name string, logger *zap.SugaredLogger) {
	if r := recover(); r != nil {
		stack := Stack()
		if logger != nil {
			logger.Errorw("Goroutine panic recovered",
				"goroutine", name,
				"panic", r,
				"stack", stack)
			return
		}
		fmt.Fprintf(os.Stderr, "PANIC in goroutine %s (no logger): %v\n%s\n", name, r, stack)
	}
}

// Go runs fn in a new goroutine tracked by wg. A panic in fn is logged and
// the goroutine still counts as done.
func Go(wg *sync.WaitGroup, name string, logger *zap.SugaredLogger, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer Recover(name, logger)
		fn()
	}()
}
