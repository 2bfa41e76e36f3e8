package service

import (
	"context"

	"github.com/hibiken/asynq"
)

// TaskEnqueuer is the slice of the job queue the services need. Enqueue
// failures are logged, never fatal: background work is best-effort from the
// request path's point of view.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}
