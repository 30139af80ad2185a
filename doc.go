// Package jobsys provides the job execution core of an editor or game
// runtime: a worker pool for background jobs, progress handles that a UI
// loop can poll, and a command thread for work that must run in order.
//
// Components
//
// The package is built from three independent pieces:
//
//   1. Pool
//      A fixed set of worker goroutines draining one shared FIFO queue.
//      The worker count is clamped to [1, HardwareConcurrency()] and
//      defaults to 2. Use it for fan-out work whose order does not matter:
//      asset imports, bundle writes, thumbnail generation.
//
//   2. Progress
//      A status record (progress value, status text, title, completion)
//      written by a running job and read by a consumer without blocking.
//      Each update publishes a new immutable snapshot, so a reader never
//      sees a half-applied change.
//
//   3. CommandThread
//      One goroutine, locked to one OS thread, that runs submitted
//      commands strictly in submission order.
//
// System ties a Pool and a CommandThread together so an application can
// create both at startup and pass them around explicitly. There are no
// package-level singletons.
//
// Scheduling
//
// Idle workers sleep on a condition variable and are woken by Submit.
// A job is claimed under the queue mutex, so it is handed to exactly one
// worker, and jobs are claimed in submission order. Execution order
// across workers is not guaranteed: two jobs claimed back to back by
// different workers run concurrently.
//
// The queue is unbounded. Submit never blocks on execution.
//
// Lifecycle
//
// NewPool starts the workers. CreateThreads restarts them, picking up a
// new SetMaxThreads value; queued jobs wait for the new workers. Stop and Shutdown reject further submissions,
// discard every job that has not been claimed yet and wait for running
// jobs to return. Submitting to a stopped pool returns ErrPoolStopped.
//
// CommandThread.Terminate runs every command already buffered, then
// joins the thread. Submitting after Terminate returns
// ErrThreadTerminated.
//
// Error handling
//
// Panics inside jobs and commands are recovered, logged and reported
// through Options.OnJobError as errors wrapping ErrJobPanicked. A worker
// never dies from a panicking job. When a job carrying a Progress panics,
// is canceled, or is dropped on shutdown, the handle is completed with
// the error so a waiting UI does not hang.
//
// Cancellation
//
// A running job cannot be interrupted. A job with a JobMeta.Ctx that is
// done by the time a worker claims it is skipped. Consumers that do not
// want to wait forever use Progress.Wait with a deadline.
package jobsys
