package scheduler

import "context"

// Job is a unit of work run by the worker pool.
type Job interface {
	// Execute runs the job. ctx carries the pool's cancellation and the
	// per-job timeout.
	Execute(ctx context.Context) error

	// SessionID names the browser session the job acts for.
	SessionID() string

	Description() string
}
