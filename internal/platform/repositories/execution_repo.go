package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"leadflow/internal/platform/models"
)

// ExecutionLogRepository is the append-only audit trail of dispatch calls.
type ExecutionLogRepository struct {
	db *sql.DB
}

func NewExecutionLogRepository(db *sql.DB) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db}
}

func (r *ExecutionLogRepository) RecordExecution(ctx context.Context, rec *models.WebhookExecution) error {
	if rec.ID == "" {
		rec.ID = "whx_" + uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO webhook_executions (
			id, organization_id, lead_id, trigger_type, total_workflows,
			queued, failed, skipped, processing_time_ms, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.OrganizationID,
		rec.LeadID,
		rec.TriggerType,
		rec.TotalWorkflows,
		rec.Queued,
		rec.Failed,
		rec.Skipped,
		rec.ProcessingTimeMs,
		rec.Payload,
		rec.CreatedAt,
	)
	return err
}

func (r *ExecutionLogRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]*models.WebhookExecution, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, organization_id, lead_id, trigger_type, total_workflows,
		       queued, failed, skipped, processing_time_ms, payload, created_at
		FROM webhook_executions
		WHERE organization_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.WebhookExecution
	for rows.Next() {
		var rec models.WebhookExecution
		var payload sql.NullString
		if err := rows.Scan(&rec.ID, &rec.OrganizationID, &rec.LeadID, &rec.TriggerType, &rec.TotalWorkflows,
			&rec.Queued, &rec.Failed, &rec.Skipped, &rec.ProcessingTimeMs, &payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Payload = payload.String
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// DeleteBefore prunes audit rows created before cutoff and reports how many went.
func (r *ExecutionLogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM webhook_executions WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
