package jobsys

import (
	"context"
)

// System bundles the worker pool and the command thread an application
// creates once at startup and hands to whatever needs to schedule work.
type System struct {
	Jobs     *Pool
	Commands *CommandThread
}

// New starts a Pool and a CommandThread sharing opts.
func New(opts Options) *System {
	opts.FillDefaults()
	return &System{
		Jobs:     NewPool(opts),
		Commands: NewCommandThread(opts),
	}
}

// Close terminates the command thread, running its buffered commands,
// then shuts the pool down. Jobs still queued in the pool are dropped.
func (s *System) Close(ctx context.Context) error {
	s.Commands.Terminate()
	return s.Jobs.Shutdown(ctx)
}
