package jobsys

import (
	"context"
	"errors"
)

var (
	// ErrPoolStopped is returned when a job is submitted to a pool
	// that has no running workers.
	ErrPoolStopped = errors.New("jobsys: pool stopped")

	// ErrNilFunc is returned when a submitted Job or command has a nil func.
	ErrNilFunc = errors.New("jobsys: job func is nil")

	// ErrNilProgress is returned by AddProgressJob when the handle is nil.
	ErrNilProgress = errors.New("jobsys: progress handle is nil")

	// ErrJobDropped marks a job that was still queued when the pool stopped.
	ErrJobDropped = errors.New("jobsys: job dropped on shutdown")

	// ErrJobPanicked wraps the value recovered from a panicking job or command.
	ErrJobPanicked = errors.New("jobsys: job panicked")

	// ErrThreadTerminated is returned by CommandThread.Submit after Terminate.
	ErrThreadTerminated = errors.New("jobsys: command thread terminated")
)

// JobFunc is the closure executed by a worker.
type JobFunc func()

// Job represents a single unit of work submitted to the pool.
//
// A Job is owned by the queue until a worker claims it, and is executed
// at most once.
type Job struct {
	Fn   JobFunc
	Meta *JobMeta
}

// JobMeta carries optional per-job data.
//
// Ctx supplies the logger and cooperative cancellation: a job whose
// context is done by the time a worker claims it is skipped.
// CleanupFunc runs once when the job is destroyed, whether it ran,
// panicked, was skipped or was dropped on shutdown.
// Progress, if set, is failed when the job panics or is dropped.
type JobMeta struct {
	Ctx         context.Context
	CleanupFunc func()
	Progress    *Progress
}

func (j Job) ctx() context.Context {
	if j.Meta != nil && j.Meta.Ctx != nil {
		return j.Meta.Ctx
	}
	return nil
}

func (j Job) cleanup() {
	if j.Meta != nil && j.Meta.CleanupFunc != nil {
		j.Meta.CleanupFunc()
	}
}

func (j Job) fail(err error) {
	if j.Meta != nil && j.Meta.Progress != nil {
		j.Meta.Progress.Fail(err)
	}
}
