package goroutine

import (
	"runtime"
	"testing"
	"time"
)

const (
	leakGracePeriod  = 5 * time.Second
	leakPollInterval = 50 * time.Millisecond
)

// AssertNoLeaks fails t if, once the test and its other cleanups have run,
// more goroutines are alive than when AssertNoLeaks was called. Call it
// first so its cleanup runs last.
func AssertNoLeaks(t testing.TB) {
	t.Helper()
	before := runtime.NumGoroutine()

	t.Cleanup(func() {
		if settle(before, leakGracePeriod, leakPollInterval) {
			return
		}
		t.Errorf("goroutine leak: started with %d goroutines, ended with %d", before, runtime.NumGoroutine())
		t.Logf("active goroutines:\n%s", allStacks())
	})
}

// settle polls until at most target goroutines are alive. It reports false
// if within elapses first. The check runs on the caller's goroutine so it
// does not count itself.
func settle(target int, within, poll time.Duration) bool {
	deadline := time.Now().Add(within)
	for {
		if runtime.NumGoroutine() <= target {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(poll)
	}
}

func allStacks() []byte {
	buf := make([]byte, 1<<20)
	return buf[:runtime.Stack(buf, true)]
}
