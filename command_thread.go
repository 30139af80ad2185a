package jobsys

import (
	"context"
	"runtime"
	"sync"

	lg "github.com/Andrej220/go-utils/zlog"
)

// Command is a closure executed on the command thread.
type Command func()

// CommandThread runs submitted commands one at a time, in submission
// order, on a single goroutine locked to its own OS thread.
//
// The thread sleeps on a condition variable until the buffer is non-empty
// or Terminate is called. Each wake-up swaps the whole buffer out under the
// lock and runs it outside the lock, so Submit never waits for a command
// to finish.
//
// When built with the nocmdthread tag, or with Options.SynchronousCommands,
// no thread is started and Submit runs the command on the caller.
type CommandThread struct {
	opts   Options
	inline bool

	mu      sync.Mutex
	cond    *sync.Cond
	buf     []Command
	spare   []Command
	running bool

	done chan struct{}
}

func NewCommandThread(opts Options) *CommandThread {
	opts.FillDefaults()
	t := &CommandThread{
		opts:   opts,
		inline: !commandThreadEnabled || opts.SynchronousCommands,
		done:   make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)
	if t.inline {
		close(t.done)
		return t
	}
	t.running = true
	go t.run()
	return t
}

// Submit appends fn to the command buffer and wakes the thread.
//
// After Terminate, the command is dropped and ErrThreadTerminated is
// returned. In synchronous mode fn runs before Submit returns.
func (t *CommandThread) Submit(fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}
	if t.inline {
		t.execute(fn)
		return nil
	}

	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		t.opts.Metrics.IncDropped(1)
		lg.FromContext(t.opts.Ctx).Warn("Command dropped", lg.Any("error", ErrThreadTerminated))
		return ErrThreadTerminated
	}
	t.buf = append(t.buf, fn)
	t.opts.Metrics.IncQueued()
	t.cond.Signal()
	t.mu.Unlock()
	return nil
}

// SubmitWith binds arg to fn and submits the result.
func SubmitWith[A any](t *CommandThread, fn func(A), arg A) error {
	if fn == nil {
		return ErrNilFunc
	}
	return t.Submit(func() { fn(arg) })
}

// Call submits fn and waits until it has run or ctx is done.
// A panic in fn is returned as an error wrapping ErrJobPanicked.
//
// Call must not be used from a command running on the same thread.
func (t *CommandThread) Call(ctx context.Context, fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}
	errCh := make(chan error, 1)
	if err := t.Submit(func() {
		defer func() {
			errCh <- recoverJob(t.opts.Ctx, &t.opts, recover())
		}()
		fn()
	}); err != nil {
		return err
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Terminate stops the thread after it has run every buffered command,
// and waits for it to exit. It is safe to call more than once, but not
// from a command running on the thread itself.
func (t *CommandThread) Terminate() {
	if t.inline {
		return
	}
	t.mu.Lock()
	wasRunning := t.running
	t.running = false
	t.cond.Broadcast()
	t.mu.Unlock()

	<-t.done
	if wasRunning {
		lg.FromContext(t.opts.Ctx).Info("Command thread terminated")
	}
}

// Running reports whether the background thread accepts commands.
// It is always false for a synchronous thread; see Synchronous.
func (t *CommandThread) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Synchronous reports whether commands run inline on the submitting
// goroutine. A synchronous thread accepts commands even after Terminate.
func (t *CommandThread) Synchronous() bool { return t.inline }

// Pending returns the number of buffered commands not yet started.
func (t *CommandThread) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}

func (t *CommandThread) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)

	for {
		t.mu.Lock()
		for t.running && len(t.buf) == 0 {
			t.cond.Wait()
		}
		batch := t.buf
		t.buf = t.spare
		t.spare = nil
		running := t.running
		t.mu.Unlock()

		if len(batch) == 0 && !running {
			return
		}

		t.opts.Metrics.BatchDecQueued(int64(len(batch)))
		for i, fn := range batch {
			t.execute(fn)
			batch[i] = nil
		}

		t.mu.Lock()
		t.spare = batch[:0]
		t.mu.Unlock()
	}
}

func (t *CommandThread) execute(fn Command) {
	defer func() {
		_ = recoverJob(t.opts.Ctx, &t.opts, recover())
	}()
	fn()
	t.opts.Metrics.IncExecuted()
}
