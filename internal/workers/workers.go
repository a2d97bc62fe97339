package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"leadflow/internal/platform/metrics"
)

type ExecutionPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneExecutionLogs deletes webhook execution rows older than retention.
func PruneExecutionLogs(ctx context.Context, repo ExecutionPruner, retention time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-retention)
	deleted, err := repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	metrics.AuditPruned.Add(float64(deleted))
	log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Worker: pruned webhook execution logs")
	return deleted, nil
}

// RunPruner prunes once immediately and then every interval until ctx is done.
func RunPruner(ctx context.Context, repo ExecutionPruner, retention, interval time.Duration) {
	if retention <= 0 {
		log.Warn().Msg("Worker: audit retention disabled, pruner not started")
		return
	}

	prune := func() {
		if _, err := PruneExecutionLogs(ctx, repo, retention, time.Now()); err != nil {
			log.Error().Err(err).Msg("Worker: failed to prune webhook execution logs")
		}
	}

	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
