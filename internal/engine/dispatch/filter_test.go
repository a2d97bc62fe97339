package dispatch

import (
	"testing"

	"leadflow/internal/platform/models"
)

func TestMatch(t *testing.T) {
	lead := &Lead{ID: "L1", Source: "website", Tags: []string{"trial", "yoga"}}
	event := &TriggerEvent{Source: "website", Lead: lead}

	tests := []struct {
		name       string
		cfg        models.TriggerConfig
		event      *TriggerEvent
		wantMatch  bool
		wantReason SkipReason
	}{
		{name: "No Filters", cfg: models.TriggerConfig{}, event: event, wantMatch: true},
		{name: "Source Match", cfg: models.TriggerConfig{Source: "website"}, event: event, wantMatch: true},
		{name: "Source All", cfg: models.TriggerConfig{Source: "all"}, event: event, wantMatch: true},
		{name: "Source Mismatch", cfg: models.TriggerConfig{Source: "facebook"}, event: event, wantReason: ReasonSourceMismatch},
		{name: "Source Case Sensitive", cfg: models.TriggerConfig{Source: "Website"}, event: event, wantReason: ReasonSourceMismatch},
		{name: "Tag Overlap", cfg: models.TriggerConfig{Tags: []string{"vip", "yoga"}}, event: event, wantMatch: true},
		{name: "Tag Disjoint", cfg: models.TriggerConfig{Tags: []string{"vip"}}, event: event, wantReason: ReasonTagsMismatch},
		{
			name:       "Lead Without Tags",
			cfg:        models.TriggerConfig{Tags: []string{"vip"}},
			event:      &TriggerEvent{Source: "website", Lead: &Lead{ID: "L2"}},
			wantReason: ReasonTagsMismatch,
		},
		{
			name:       "Source Checked Before Tags",
			cfg:        models.TriggerConfig{Source: "facebook", Tags: []string{"vip"}},
			event:      event,
			wantReason: ReasonSourceMismatch,
		},
		{
			name:       "Event Without Source",
			cfg:        models.TriggerConfig{Source: "website"},
			event:      &TriggerEvent{Lead: &Lead{ID: "L3"}},
			wantReason: ReasonSourceMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Match(tt.cfg, tt.event)
			if ok != tt.wantMatch {
				t.Errorf("Expected match=%v, got %v", tt.wantMatch, ok)
			}
			if reason != tt.wantReason {
				t.Errorf("Expected reason %q, got %q", tt.wantReason, reason)
			}
		})
	}
}
