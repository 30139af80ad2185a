package jobsys_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	js "github.com/Andrej220/go-utils/jobsys"
)

func newTestPool(t *testing.T, threads int) *js.Pool {
	t.Helper()

	p := js.NewPool(js.Options{MaxThreads: threads})
	t.Cleanup(p.Stop)
	return p
}

func newTestPoolWithMetrics(t *testing.T, threads int) (*js.Pool, *js.AtomicMetrics) {
	t.Helper()

	m := &js.AtomicMetrics{}
	p := js.NewPool(js.Options{MaxThreads: threads, Metrics: m})
	t.Cleanup(p.Stop)
	return p, m
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
	}
	t.Fatal("condition not satisfied before timeout")
}

func waitClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration, what string) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("%s did not happen within %v", what, timeout)
	}
}

// errorSink collects errors passed to Options.OnJobError.
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) add(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func (s *errorSink) snapshot() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}
