package jobsys

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	lg "github.com/Andrej220/go-utils/zlog"
)

// Pool is a fixed-size set of worker goroutines draining a shared FIFO queue.
//
// Workers sleep on a condition variable while the queue is empty and are
// woken by Submit. A job is claimed under the queue mutex, so exactly one
// worker can take it, and executed outside the lock.
type Pool struct {
	opts Options

	mu      sync.Mutex
	cond    *sync.Cond
	queue   *jobQueue
	running bool

	// lifeMu serializes CreateThreads and Shutdown.
	lifeMu     sync.Mutex
	workers    *workerSet
	maxThreads atomic.Int32

	liveWorkers   atomic.Int32
	activeWorkers atomic.Int32
}

// workerSet is one generation of workers started by CreateThreads.
type workerSet struct {
	wg   sync.WaitGroup
	done chan struct{}

	// quit is guarded by Pool.mu.
	quit bool
}

// NewPool creates a pool and starts its workers.
func NewPool(opts Options) *Pool {
	opts.FillDefaults()
	p := &Pool{
		opts:  opts,
		queue: newJobQueue(initialQueueCapacity),
	}
	p.cond = sync.NewCond(&p.mu)
	p.SetMaxThreads(opts.MaxThreads)
	p.CreateThreads()
	return p
}

// SetMaxThreads clamps n to [1, HardwareConcurrency()] and records it as
// the worker count for the next CreateThreads. A running pool is not resized.
func (p *Pool) SetMaxThreads(n int) {
	p.maxThreads.Store(int32(clampThreads(n)))
}

// MaxThreads returns the clamped worker count.
func (p *Pool) MaxThreads() int { return int(p.maxThreads.Load()) }

// CreateThreads joins any existing workers, then starts MaxThreads() new
// ones. Calling it again restarts the pool. Queued jobs survive a restart
// and the pool keeps accepting submissions while it happens.
//
// CreateThreads must not be called from inside a running job: it waits
// for the calling worker to exit and never returns.
func (p *Pool) CreateThreads() {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()

	n := p.MaxThreads()
	ws := &workerSet{done: make(chan struct{})}

	p.mu.Lock()
	old := p.workers
	if old != nil {
		old.quit = true
	}
	p.running = true
	p.cond.Broadcast()
	p.mu.Unlock()

	if old != nil {
		<-old.done
	}

	ws.wg.Add(n)
	p.liveWorkers.Add(int32(n))
	for i := range n {
		go p.worker(i, ws)
	}
	go func() {
		ws.wg.Wait()
		close(ws.done)
	}()

	p.mu.Lock()
	p.workers = ws
	p.mu.Unlock()

	lg.FromContext(p.opts.Ctx).Info("Pool started", lg.Int("threads", n))
}

// Shutdown stops accepting jobs, discards everything still queued and
// waits for workers to finish the job they are executing.
//
// If ctx expires first, ctx.Err() is returned and the workers keep
// winding down in the background; a later Shutdown waits for them again.
// Like CreateThreads, it must not be called from inside a running job.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.lifeMu.Lock()
	ws := p.stopLocked()
	p.lifeMu.Unlock()

	if ws == nil {
		return nil
	}
	select {
	case <-ws.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop is Shutdown without a deadline. It deadlocks if called from a job.
func (p *Pool) Stop() { _ = p.Shutdown(context.Background()) }

// stopLocked clears the running flag, tells the current generation to
// quit, wakes every worker and discards the queue. It returns that
// generation. lifeMu must be held.
func (p *Pool) stopLocked() *workerSet {
	p.mu.Lock()
	wasRunning := p.running
	p.running = false
	if p.workers != nil {
		p.workers.quit = true
	}
	dropped := p.queue.Drain()
	p.cond.Broadcast()
	p.mu.Unlock()

	p.discard(dropped)
	if wasRunning {
		lg.FromContext(p.opts.Ctx).Info("Pool stopping", lg.Int("dropped", len(dropped)))
	}
	return p.workers
}

// discard destroys jobs that never ran.
func (p *Pool) discard(jobs []Job) {
	if len(jobs) == 0 {
		return
	}
	p.opts.Metrics.BatchDecQueued(int64(len(jobs)))
	p.opts.Metrics.IncDropped(int64(len(jobs)))
	for _, j := range jobs {
		j.fail(ErrJobDropped)
		j.cleanup()
	}
	reportJobError(&p.opts, fmt.Errorf("%w: %d jobs", ErrJobDropped, len(jobs)))
}

// AddJob wraps fn in a Job and submits it.
func (p *Pool) AddJob(fn JobFunc) error {
	return p.Submit(Job{Fn: fn})
}

// Submit appends job to the queue and wakes one idle worker.
// It never blocks on execution and is safe to call from any goroutine,
// including from inside a running job.
func (p *Pool) Submit(job Job) error {
	if job.Fn == nil {
		return ErrNilFunc
	}
	ctx := p.jobCtx(job)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("jobsys: submit: %w", err)
	}

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		lg.FromContext(ctx).Warn("Job rejected", lg.Any("error", ErrPoolStopped))
		return ErrPoolStopped
	}
	p.queue.Push(job)
	p.opts.Metrics.IncQueued()
	p.cond.Signal()
	p.mu.Unlock()
	return nil
}

// AddProgressJob runs fn on the pool with pr as its progress handle.
// pr is completed after fn returns unless fn completed it already, and
// failed if fn panics or the job is dropped.
func (p *Pool) AddProgressJob(pr *Progress, fn func(*Progress)) error {
	if fn == nil {
		return ErrNilFunc
	}
	if pr == nil {
		return ErrNilProgress
	}
	return p.Submit(Job{
		Fn: func() {
			fn(pr)
			pr.OnComplete()
		},
		Meta: &JobMeta{Progress: pr},
	})
}

func (p *Pool) worker(id int, ws *workerSet) {
	defer ws.wg.Done()
	defer p.liveWorkers.Add(-1)

	if p.opts.PinWorkers {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := PinToCPU(id % HardwareConcurrency()); err != nil {
			lg.FromContext(p.opts.Ctx).Warn("Worker pinning failed", lg.Int("worker", id), lg.Any("error", err))
		}
	}

	for {
		job, ok := p.claim(ws)
		if !ok {
			return
		}
		p.processJob(job)
	}
}

// claim blocks until a job is available or ws is told to quit.
func (p *Pool) claim(ws *workerSet) (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !ws.quit && p.queue.Len() == 0 {
		p.cond.Wait()
	}
	if ws.quit {
		return Job{}, false
	}
	job, _ := p.queue.Pop()
	p.opts.Metrics.BatchDecQueued(1)
	p.activeWorkers.Add(1)
	return job, true
}

func (p *Pool) processJob(job Job) {
	ctx := p.jobCtx(job)
	defer p.activeWorkers.Add(-1)
	defer job.cleanup()
	defer func() {
		if err := recoverJob(ctx, &p.opts, recover()); err != nil {
			job.fail(err)
		}
	}()

	if err := ctx.Err(); err != nil {
		lg.FromContext(ctx).Info("Job canceled", lg.Any("reason", err))
		p.opts.Metrics.IncDropped(1)
		job.fail(err)
		return
	}

	job.Fn()
	p.opts.Metrics.IncExecuted()
}

func (p *Pool) jobCtx(job Job) context.Context {
	if ctx := job.ctx(); ctx != nil {
		return ctx
	}
	return p.opts.Ctx
}

// Running reports whether the pool accepts jobs.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Threads returns the number of live worker goroutines.
func (p *Pool) Threads() int { return int(p.liveWorkers.Load()) }

// ActiveWorkers returns the number of workers currently executing a job.
func (p *Pool) ActiveWorkers() int32 { return p.activeWorkers.Load() }

// QueueLength returns the number of jobs waiting to be claimed.
func (p *Pool) QueueLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}
