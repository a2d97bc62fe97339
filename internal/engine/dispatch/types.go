package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leadflow/internal/platform/models"
)

var ErrInvalidInput = errors.New("missing lead or organization data")

// LookupError means the candidate workflows could not be loaded, so nothing was enqueued.
type LookupError struct {
	Err     error
	Elapsed time.Duration
}

func (e *LookupError) Error() string {
	return "failed to fetch workflows: " + e.Err.Error()
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

type Lead struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Source    string     `json:"source,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Score     *float64   `json:"score,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Request is one inbound webhook call.
type Request struct {
	TriggerType    string
	OrganizationID string
	Lead           *Lead
	Priority       json.RawMessage // accepted, not used for classification
	Metadata       map[string]interface{}
	RawPayload     []byte
}

// TriggerEvent is the normalized form of a request handed to filtering and classification.
type TriggerEvent struct {
	Type           string
	Source         string
	LeadID         string
	Timestamp      time.Time
	OrganizationID string
	Lead           *Lead
}

// TriggerData is the job body an execution queue receives.
type TriggerData struct {
	TriggerType    string                 `json:"triggerType"`
	OrganizationID string                 `json:"organizationId"`
	LeadID         string                 `json:"leadId"`
	Source         string                 `json:"source,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Lead           *Lead                  `json:"lead"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type EnqueueOptions struct {
	Priority Priority
	Delay    time.Duration
	Metadata map[string]string
}

// Enqueuer hands a workflow execution to an asynchronous execution system and
// returns the correlation id of the execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, workflowID string, data *TriggerData, opts EnqueueOptions) (string, error)
}

type WorkflowStore interface {
	ListActiveByTrigger(ctx context.Context, orgID, triggerType string) ([]*models.Workflow, error)
}

type AuditSink interface {
	RecordExecution(ctx context.Context, rec *models.WebhookExecution) error
}

type Status string

const (
	StatusQueued  Status = "queued"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

type EnqueueResult struct {
	WorkflowID   string     `json:"workflowId"`
	WorkflowName string     `json:"workflowName"`
	Status       Status     `json:"status"`
	Reason       SkipReason `json:"reason,omitempty"`
	ExecutionID  string     `json:"executionId,omitempty"`
	Error        string     `json:"error,omitempty"`
	Priority     Priority   `json:"priority,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

type Summary struct {
	TotalWorkflows   int   `json:"totalWorkflows"`
	Queued           int   `json:"queued"`
	Failed           int   `json:"failed"`
	Skipped          int   `json:"skipped"`
	ProcessingTimeMs int64 `json:"processingTimeMs"`
}

type Result struct {
	Message        string          `json:"message"`
	Summary        Summary         `json:"summary"`
	Executions     []EnqueueResult `json:"executions"`
	LeadID         string          `json:"leadId"`
	CorrelationIDs []string        `json:"correlationIds"`
}
