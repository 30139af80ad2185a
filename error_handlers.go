package jobsys

import (
	"context"
	"fmt"

	lg "github.com/Andrej220/go-utils/zlog"
)

// recoverJob converts a recovered panic value into an error wrapping
// ErrJobPanicked, logs it and reports it. It returns nil if r is nil.
func recoverJob(ctx context.Context, opts *Options, r any) error {
	if r == nil {
		return nil
	}
	err := fmt.Errorf("%w: %v", ErrJobPanicked, r)
	lg.FromContext(ctx).Error("job panicked", lg.Any("panic", r))
	opts.Metrics.IncPanicked()
	reportJobError(opts, err)
	return err
}

// reportJobError reports an error produced by panic recovery or by
// discarding a queued job.
//
// Job errors do not stop execution. If no handler is registered,
// the error is only logged.
func reportJobError(opts *Options, err error) {
	if opts.OnJobError != nil {
		opts.OnJobError(err)
	}
}
