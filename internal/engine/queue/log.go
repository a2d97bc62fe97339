package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"leadflow/internal/engine/dispatch"
)

// LogQueue only logs jobs. It is meant for local development where no broker runs.
type LogQueue struct {
	now func() time.Time
}

func NewLogQueue() *LogQueue {
	return &LogQueue{now: time.Now}
}

func (q *LogQueue) Enqueue(ctx context.Context, workflowID string, data *dispatch.TriggerData, opts dispatch.EnqueueOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	job := newJob(workflowID, data, opts, q.now())
	log.Info().
		Str("execution_id", job.ExecutionID).
		Str("workflow_id", workflowID).
		Str("priority", string(job.Priority)).
		Str("delay", job.Delay).
		Msg("workflow execution enqueued (log queue)")
	return job.ExecutionID, nil
}

func (q *LogQueue) Close() error { return nil }
