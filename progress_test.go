package jobsys_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	js "github.com/Andrej220/go-utils/jobsys"
)

func TestProgressLastStatusWins(t *testing.T) {
	p := newTestPool(t, 2)
	pr := js.NewProgress()

	err := p.AddJob(func() {
		pr.SetStatus("A")
		pr.SetStatus("B")
		pr.OnComplete()
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	waitUntil(t, time.Second, pr.Completed)
	if got := pr.GetStatus(); got != "B" {
		t.Fatalf("status = %q; want %q", got, "B")
	}
}

func TestProgressSingleWriterEventuallyConsistent(t *testing.T) {
	p := newTestPool(t, 1)
	pr := js.NewProgress()

	const steps = 1000
	_ = p.AddProgressJob(pr, func(pr *js.Progress) {
		pr.SetTitle("Bundling assets")
		for i := range steps {
			pr.AddProgress(0.05)
			if i == steps/2 {
				pr.SetStatus("halfway")
			}
		}
		pr.SetProgress(100)
	})

	// consumer polls like a frame loop
	var last float64
	waitUntil(t, 2*time.Second, func() bool {
		v := pr.GetProgress()
		if v < last {
			t.Errorf("progress went backwards: %v after %v", v, last)
		}
		last = v
		return pr.Completed()
	})

	s := pr.Snapshot()
	if s.Progress != 100 || s.Title != "Bundling assets" || s.Status != "halfway" || s.Err != nil {
		t.Fatalf("final snapshot = %+v", s)
	}
}

func TestProgressReset(t *testing.T) {
	pr := js.NewProgress()
	pr.SetTitle("Import")
	pr.SetStatus("reading")
	pr.SetProgress(40)
	pr.Fail(errors.New("disk full"))

	pr.Reset()

	s := pr.Snapshot()
	if s.Progress != 0 || s.Status != "" || s.Title != "" || s.Done || s.Err != nil {
		t.Fatalf("snapshot after Reset = %+v; want zeroed", s)
	}
	if pr.Elapsed() != 0 {
		t.Fatalf("Elapsed after Reset = %v; want 0 until the next write", pr.Elapsed())
	}

	time.Sleep(5 * time.Millisecond)
	pr.SetStatus("reading again")
	if s := pr.Snapshot(); s.Started.IsZero() || time.Since(s.Started) >= 5*time.Millisecond {
		t.Fatalf("timer started at %v; want the first write after Reset", s.Started)
	}

	pr.OnComplete()
	if !pr.Completed() {
		t.Fatal("OnComplete after Reset did not complete the handle")
	}
}

func TestProgressCompletionFuncBeforeDone(t *testing.T) {
	pr := js.NewProgress()
	var finished atomic.Bool
	pr.SetCompletionFunc(func() {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})

	go pr.OnComplete()

	waitUntil(t, time.Second, pr.Completed)
	if !finished.Load() {
		t.Fatal("Completed() observed before the completion func returned")
	}

	// the func stays registered across Reset
	finished.Store(false)
	pr.Reset()
	pr.Fail(errors.New("second run"))
	if !finished.Load() {
		t.Fatal("completion func did not run after Reset")
	}
}

func TestProgressCompletionFuncRunsOnce(t *testing.T) {
	pr := js.NewProgress()
	var calls atomic.Int32
	pr.SetCompletionFunc(func() { calls.Add(1) })

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pr.OnComplete()
		}()
	}
	wg.Wait()
	pr.Fail(errors.New("late"))

	if got := calls.Load(); got != 1 {
		t.Fatalf("completion func ran %d times; want 1", got)
	}
	if pr.Err() != nil {
		t.Fatalf("Fail after OnComplete changed err to %v", pr.Err())
	}
}

func TestProgressElapsedFrozenAtCompletion(t *testing.T) {
	pr := js.NewProgress()
	time.Sleep(5 * time.Millisecond)
	pr.OnComplete()

	first := pr.Elapsed()
	if first < 5*time.Millisecond {
		t.Fatalf("Elapsed = %v; want >= 5ms", first)
	}
	time.Sleep(5 * time.Millisecond)
	if got := pr.Elapsed(); got != first {
		t.Fatalf("Elapsed moved after completion: %v -> %v", first, got)
	}
}

func TestProgressZeroValue(t *testing.T) {
	var pr js.Progress
	if pr.Completed() || pr.Elapsed() != 0 || pr.GetStatus() != "" {
		t.Fatal("zero Progress not empty")
	}
	pr.AddProgress(2)
	pr.AddProgress(3)
	if got := pr.GetProgress(); got != 5 {
		t.Fatalf("progress = %v; want 5", got)
	}
}

func TestProgressWait(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{"Completes", testWaitCompletes},
		{"Deadline", testWaitDeadline},
		{"PanicFailsHandle", testWaitPanicFailsHandle},
		{"DroppedJobFailsHandle", testWaitDroppedJob},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.fn(t)
		})
	}
}

func testWaitCompletes(t *testing.T) {
	t.Helper()

	p := newTestPool(t, 1)
	pr := js.NewProgress()
	_ = p.AddProgressJob(pr, func(pr *js.Progress) {
		time.Sleep(10 * time.Millisecond)
		pr.SetStatus("done")
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s, err := pr.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !s.Done || s.Status != "done" {
		t.Fatalf("snapshot = %+v", s)
	}
}

func testWaitDeadline(t *testing.T) {
	t.Helper()

	pr := js.NewProgress()
	pr.SetStatus("stuck")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	s, err := pr.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait err = %v; want deadline exceeded", err)
	}
	if s.Done || s.Status != "stuck" {
		t.Fatalf("snapshot = %+v", s)
	}
}

func testWaitPanicFailsHandle(t *testing.T) {
	t.Helper()

	p := newTestPool(t, 1)
	pr := js.NewProgress()
	var exited atomic.Bool
	pr.SetCompletionFunc(func() { exited.Store(true) })

	_ = p.AddProgressJob(pr, func(*js.Progress) { panic("corrupt asset") })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := pr.Wait(ctx)
	if !errors.Is(err, js.ErrJobPanicked) {
		t.Fatalf("Wait err = %v; want ErrJobPanicked", err)
	}
	if !exited.Load() {
		t.Fatal("handle completed before its completion func ran")
	}
}

func testWaitDroppedJob(t *testing.T) {
	t.Helper()

	p := newTestPool(t, 1)
	release := make(chan struct{})
	started := make(chan struct{})
	_ = p.AddJob(func() {
		close(started)
		<-release
	})
	waitClosed(t, started, 500*time.Millisecond, "blocking job start")

	pr := js.NewProgress()
	if err := p.AddProgressJob(pr, func(*js.Progress) {}); err != nil {
		t.Fatalf("AddProgressJob: %v", err)
	}

	go p.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := pr.Wait(ctx)
	close(release)
	if !errors.Is(err, js.ErrJobDropped) {
		t.Fatalf("Wait err = %v; want ErrJobDropped", err)
	}
}
