package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"leadflow/internal/platform/models"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrMalformedWorkflow marks a row whose JSON columns cannot be decoded.
	ErrMalformedWorkflow = errors.New("malformed workflow row")
)

type WorkflowRepository struct {
	db *sql.DB
}

func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

const workflowColumns = `id, organization_id, name, status, trigger_type, trigger_config, settings, created_at, updated_at`

func (r *WorkflowRepository) Create(ctx context.Context, wf *models.Workflow) error {
	if wf.ID == "" {
		wf.ID = "wf_" + uuid.New().String()
	}
	now := time.Now().Unix()
	wf.CreatedAt = now
	wf.UpdatedAt = now
	if wf.Status == "" {
		wf.Status = models.WorkflowStatusInactive
	}

	triggerJSON, settingsJSON, err := encodeWorkflowJSON(wf)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query, wf.ID, wf.OrganizationID, wf.Name, wf.Status, wf.TriggerType,
		triggerJSON, settingsJSON, wf.CreatedAt, wf.UpdatedAt)
	return err
}

func (r *WorkflowRepository) GetByID(ctx context.Context, orgID, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE organization_id = ? AND id = ?`
	wf, err := scanWorkflow(r.db.QueryRowContext(ctx, query, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return wf, err
}

func (r *WorkflowRepository) List(ctx context.Context, orgID string) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE organization_id = ? ORDER BY created_at DESC`
	return r.query(ctx, query, orgID)
}

// ListActiveByTrigger returns the dispatch candidates for one event.
func (r *WorkflowRepository) ListActiveByTrigger(ctx context.Context, orgID, triggerType string) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE organization_id = ? AND status = ? AND trigger_type = ?
		ORDER BY created_at ASC
	`
	return r.query(ctx, query, orgID, models.WorkflowStatusActive, triggerType)
}

func (r *WorkflowRepository) Update(ctx context.Context, wf *models.Workflow) error {
	triggerJSON, settingsJSON, err := encodeWorkflowJSON(wf)
	if err != nil {
		return err
	}
	wf.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE workflows
		SET name = ?, status = ?, trigger_type = ?, trigger_config = ?, settings = ?, updated_at = ?
		WHERE organization_id = ? AND id = ?
	`
	res, err := r.db.ExecContext(ctx, query, wf.Name, wf.Status, wf.TriggerType, triggerJSON, settingsJSON,
		wf.UpdatedAt, wf.OrganizationID, wf.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *WorkflowRepository) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE organization_id = ? AND id = ?`, orgID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*models.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if errors.Is(err, ErrMalformedWorkflow) {
			// One corrupt row must not hide the organization's other workflows.
			log.Error().Err(err).Msg("skipping workflow with malformed configuration")
			continue
		}
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

func encodeWorkflowJSON(wf *models.Workflow) (string, string, error) {
	triggerJSON, err := json.Marshal(wf.TriggerConfig)
	if err != nil {
		return "", "", err
	}
	settingsJSON, err := json.Marshal(wf.Settings)
	if err != nil {
		return "", "", err
	}
	return string(triggerJSON), string(settingsJSON), nil
}

func scanWorkflow(s interface {
	Scan(dest ...interface{}) error
}) (*models.Workflow, error) {
	var wf models.Workflow
	var triggerRaw, settingsRaw sql.NullString

	err := s.Scan(&wf.ID, &wf.OrganizationID, &wf.Name, &wf.Status, &wf.TriggerType,
		&triggerRaw, &settingsRaw, &wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return nil, err
	}

	// A malformed config must not silently widen the trigger, so it is an error.
	if triggerRaw.Valid && triggerRaw.String != "" {
		if err := json.Unmarshal([]byte(triggerRaw.String), &wf.TriggerConfig); err != nil {
			return nil, fmt.Errorf("%w: workflow %s trigger_config: %v", ErrMalformedWorkflow, wf.ID, err)
		}
	}
	if settingsRaw.Valid && settingsRaw.String != "" {
		if err := json.Unmarshal([]byte(settingsRaw.String), &wf.Settings); err != nil {
			return nil, fmt.Errorf("%w: workflow %s settings: %v", ErrMalformedWorkflow, wf.ID, err)
		}
	}

	return &wf, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
