package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	WorkflowStatusActive   = "active"
	WorkflowStatusInactive = "inactive"

	TriggerLeadCreated = "lead_created"
)

type Workflow struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Name           string           `json:"name"`
	Status         string           `json:"status"` // active, inactive
	TriggerType    string           `json:"trigger_type"`
	TriggerConfig  TriggerConfig    `json:"trigger_config"` // JSON in DB
	Settings       WorkflowSettings `json:"settings"`       // JSON in DB
	CreatedAt      int64            `json:"created_at"`
	UpdatedAt      int64            `json:"updated_at"`
}

// TriggerConfig narrows which events start a workflow. Zero values match everything.
type TriggerConfig struct {
	Source string   `json:"source,omitempty"` // "" or "all" matches any source
	Tags   []string `json:"tags,omitempty"`   // lead needs at least one
	Delay  Duration `json:"delay,omitempty"`
}

type WorkflowSettings struct {
	Priority string `json:"priority,omitempty"` // critical, high, normal, low
}

// Duration accepts either a Go duration string ("15m") or a number of seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*d = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	secs, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid delay %s: %w", b, err)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
