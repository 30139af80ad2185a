package jobsys

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// MetricsPolicy defines hooks used by the pool and the command thread
// to report queueing and execution activity.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking
type MetricsPolicy interface {

	// IncQueued increments the queued jobs counter.
	IncQueued()

	// BatchDecQueued decrements the queued counter by n.
	//
	// Used when jobs leave the queue, either claimed by a worker
	// or drained by a command thread.
	BatchDecQueued(n int64)

	// IncExecuted increments the executed jobs counter.
	IncExecuted()

	// IncDropped counts n jobs discarded without running.
	IncDropped(n int64)

	// IncPanicked increments the recovered panics counter.
	IncPanicked()
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	executed atomic.Uint64
	_        cpu.CacheLinePad

	queued atomic.Int64
	_      cpu.CacheLinePad

	dropped  atomic.Uint64
	panicked atomic.Uint64
}

// Executed returns the total number of executed jobs.
func (m *AtomicMetrics) Executed() uint64 { return m.executed.Load() }

// Queued returns the current number of queued jobs.
func (m *AtomicMetrics) Queued() int64 { return m.queued.Load() }

// Dropped returns the total number of jobs discarded without running.
func (m *AtomicMetrics) Dropped() uint64 { return m.dropped.Load() }

// Panicked returns the total number of recovered panics.
func (m *AtomicMetrics) Panicked() uint64 { return m.panicked.Load() }

func (m *AtomicMetrics) IncQueued()             { m.queued.Add(1) }
func (m *AtomicMetrics) BatchDecQueued(n int64) { m.queued.Add(-n) }
func (m *AtomicMetrics) IncExecuted()           { m.executed.Add(1) }
func (m *AtomicMetrics) IncDropped(n int64)     { m.dropped.Add(uint64(n)) }
func (m *AtomicMetrics) IncPanicked()           { m.panicked.Add(1) }

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
type NoopMetrics struct{}

func (m *NoopMetrics) IncQueued()             {}
func (m *NoopMetrics) BatchDecQueued(n int64) {}
func (m *NoopMetrics) IncExecuted()           {}
func (m *NoopMetrics) IncDropped(n int64)     {}
func (m *NoopMetrics) IncPanicked()           {}
