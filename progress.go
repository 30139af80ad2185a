package jobsys

import (
	"context"
	"sync/atomic"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
)

const (
	waitInitialPoll = time.Millisecond
	waitMaxPoll     = 50 * time.Millisecond
)

// ProgressSnapshot is an immutable view of a Progress at one instant.
type ProgressSnapshot struct {
	// Progress is usually a percentage. It is not clamped.
	Progress float64
	Status   string
	Title    string
	Done     bool

	// Err is set when the operation failed: the job panicked, was dropped
	// on shutdown or its context was canceled before it started.
	Err error

	Started  time.Time
	Finished time.Time
}

// Progress is a shared status record for one long-running operation.
//
// A worker publishes status through the setters while a consumer, usually
// a UI loop, polls the getters once per frame. Every update installs a new
// ProgressSnapshot with a compare-and-swap, so readers always see a
// consistent set of fields and never block.
//
// A Progress is meant to be reused: once the consumer has observed
// Completed, it calls Reset before handing the handle to the next job.
type Progress struct {
	state  atomic.Pointer[ProgressSnapshot]
	onDone atomic.Pointer[func()]

	// completing is set by the first OnComplete or Fail of a cycle.
	completing atomic.Bool
}

func NewProgress() *Progress {
	p := &Progress{}
	p.state.Store(&ProgressSnapshot{Started: time.Now()})
	return p
}

// update applies fn to a copy of the current snapshot and publishes it.
func (p *Progress) update(fn func(s *ProgressSnapshot)) (old *ProgressSnapshot) {
	for {
		old = p.state.Load()
		var next ProgressSnapshot
		if old != nil {
			next = *old
		}
		if next.Started.IsZero() {
			next.Started = time.Now()
		}
		fn(&next)
		if p.state.CompareAndSwap(old, &next) {
			return old
		}
	}
}

func (p *Progress) SetStatus(status string) {
	p.update(func(s *ProgressSnapshot) { s.Status = status })
}

func (p *Progress) SetTitle(title string) {
	p.update(func(s *ProgressSnapshot) { s.Title = title })
}

func (p *Progress) SetProgress(v float64) {
	p.update(func(s *ProgressSnapshot) { s.Progress = v })
}

func (p *Progress) AddProgress(delta float64) {
	p.update(func(s *ProgressSnapshot) { s.Progress += delta })
}

// SetCompletionFunc registers fn to run once per completion, on the
// goroutine that completes the handle. fn returns before Done is
// published, so Completed() implies fn has finished.
func (p *Progress) SetCompletionFunc(fn func()) {
	if fn == nil {
		p.onDone.Store(nil)
		return
	}
	p.onDone.Store(&fn)
}

// OnComplete marks the operation done. Only the first completion counts.
func (p *Progress) OnComplete() { p.complete(nil) }

// Fail completes the operation with err.
func (p *Progress) Fail(err error) { p.complete(err) }

func (p *Progress) complete(err error) {
	if !p.completing.CompareAndSwap(false, true) {
		return
	}
	defer p.update(func(s *ProgressSnapshot) {
		s.Done = true
		s.Err = err
		s.Finished = time.Now()
	})
	if fn := p.onDone.Load(); fn != nil {
		(*fn)()
	}
}

// Reset clears progress, status, title, completion and error. The elapsed
// timer stays at zero until the next write. The completion func is kept.
func (p *Progress) Reset() {
	p.state.Store(&ProgressSnapshot{})
	p.completing.Store(false)
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	if s := p.state.Load(); s != nil {
		return *s
	}
	return ProgressSnapshot{}
}

func (p *Progress) GetProgress() float64 { return p.Snapshot().Progress }
func (p *Progress) GetStatus() string    { return p.Snapshot().Status }
func (p *Progress) GetTitle() string     { return p.Snapshot().Title }
func (p *Progress) Completed() bool      { return p.Snapshot().Done }
func (p *Progress) Err() error           { return p.Snapshot().Err }

// Elapsed returns the time since the handle was created, or since the
// first write after a Reset. It stops advancing once the operation
// completes.
func (p *Progress) Elapsed() time.Duration {
	s := p.Snapshot()
	switch {
	case s.Started.IsZero():
		return 0
	case s.Done:
		return s.Finished.Sub(s.Started)
	default:
		return time.Since(s.Started)
	}
}

// Wait polls until the operation completes or ctx is done, backing off
// between polls. It returns the final snapshot and its Err, or the latest
// snapshot and ctx.Err() if the caller gave up first. Giving up does not
// stop the job.
func (p *Progress) Wait(ctx context.Context) (ProgressSnapshot, error) {
	bo := boff.New(waitInitialPoll, waitMaxPoll, time.Now().UnixNano())
	for {
		s := p.Snapshot()
		if s.Done {
			return s, s.Err
		}
		timer := time.NewTimer(bo.Next())
		select {
		case <-timer.C:
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C // drain if timer is fired
			}
			return p.Snapshot(), ctx.Err()
		}
	}
}
