package models

// WebhookExecution is the audit row written once per dispatch call.
type WebhookExecution struct {
	ID               string `json:"id"`
	OrganizationID   string `json:"organization_id"`
	LeadID           string `json:"lead_id"`
	TriggerType      string `json:"trigger_type"`
	TotalWorkflows   int    `json:"total_workflows"`
	Queued           int    `json:"queued"`
	Failed           int    `json:"failed"`
	Skipped          int    `json:"skipped"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Payload          string `json:"payload,omitempty"` // raw request body
	CreatedAt        int64  `json:"created_at"`
}
