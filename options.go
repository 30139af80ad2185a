package jobsys

import (
	"context"
	"runtime"
)

const (
	// DefaultMaxThreads is the worker count used when Options.MaxThreads is zero.
	DefaultMaxThreads = 2
)

// Options configure a Pool, a CommandThread or a System.
//
// All zero values are replaced with sensible defaults in FillDefaults.
type Options struct {
	// MaxThreads is the requested worker count. It is clamped to
	// [1, HardwareConcurrency()].
	MaxThreads int

	// PinWorkers locks each worker to an OS thread pinned to one CPU.
	// Only honored on Linux.
	PinWorkers bool

	// SynchronousCommands makes CommandThread.Submit run commands inline
	// on the calling goroutine instead of on the dedicated thread.
	SynchronousCommands bool

	// Ctx carries the logger used for pool and thread events.
	Ctx context.Context

	Metrics MetricsPolicy

	// OnJobError receives errors produced by panic recovery and by
	// jobs dropped on shutdown. It must be safe for concurrent use.
	OnJobError func(error)
}

func (o *Options) FillDefaults() {
	if o.MaxThreads <= 0 {
		o.MaxThreads = DefaultMaxThreads
	}
	if o.Ctx == nil {
		o.Ctx = context.Background()
	}
	if o.Metrics == nil {
		o.Metrics = &NoopMetrics{}
	}
}

// HardwareConcurrency reports the number of logical CPUs usable by the process.
func HardwareConcurrency() int {
	return runtime.NumCPU()
}

func clampThreads(n int) int {
	hw := HardwareConcurrency()
	if n > hw {
		n = hw
	}
	if n < 1 {
		n = 1
	}
	return n
}
