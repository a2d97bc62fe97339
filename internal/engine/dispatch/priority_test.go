package dispatch

import (
	"testing"
	"time"

	"leadflow/internal/platform/models"
)

func score(v float64) *float64 { return &v }

func TestClassifier_Classify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tenMinutesAgo := now.Add(-10 * time.Minute)
	twoHoursAgo := now.Add(-2 * time.Hour)
	exactlyWindow := now.Add(-RecentLeadWindow)

	tests := []struct {
		name     string
		override string
		lead     *Lead
		want     Priority
		wantRule string
	}{
		{name: "Override Critical", override: "critical", lead: &Lead{Score: score(10)}, want: PriorityCritical, wantRule: "override_critical"},
		{name: "Score 95", lead: &Lead{Score: score(95), Source: "facebook"}, want: PriorityCritical, wantRule: "score_critical"},
		{name: "Score 90 Inclusive", lead: &Lead{Score: score(90)}, want: PriorityCritical, wantRule: "score_critical"},
		{name: "Recent Lead", lead: &Lead{Score: score(50), CreatedAt: &tenMinutesAgo}, want: PriorityCritical, wantRule: "recent_lead"},
		{name: "Exactly 30 Minutes Is Not Recent", lead: &Lead{Score: score(50), CreatedAt: &exactlyWindow}, want: PriorityNormal, wantRule: "default"},
		{name: "Old Lead", lead: &Lead{Score: score(50), CreatedAt: &twoHoursAgo}, want: PriorityNormal, wantRule: "default"},
		{name: "Missing CreatedAt Not Recent", lead: &Lead{Score: score(50)}, want: PriorityNormal, wantRule: "default"},
		{name: "Override High", override: "high", lead: &Lead{Score: score(10)}, want: PriorityHigh, wantRule: "override_high"},
		{name: "Score 70", lead: &Lead{Score: score(70)}, want: PriorityHigh, wantRule: "score_high"},
		{name: "Referral Source", lead: &Lead{Source: "referral", Score: score(50)}, want: PriorityHigh, wantRule: "high_value_source"},
		{name: "Organic Search Beats Low Score", lead: &Lead{Source: "organic_search", Score: score(5)}, want: PriorityHigh, wantRule: "high_value_source"},
		{name: "Override Low", override: "low", lead: &Lead{Score: score(50)}, want: PriorityLow, wantRule: "override_low"},
		{name: "Score Critical Beats Override Low", override: "low", lead: &Lead{Score: score(92)}, want: PriorityCritical, wantRule: "score_critical"},
		{name: "Score 29", lead: &Lead{Score: score(29)}, want: PriorityLow, wantRule: "score_low"},
		{name: "Score 30 Normal", lead: &Lead{Score: score(30)}, want: PriorityNormal, wantRule: "default"},
		{name: "No Score Normal", lead: &Lead{Source: "website"}, want: PriorityNormal, wantRule: "default"},
		{name: "Override Normal Falls Through", override: "normal", lead: &Lead{Score: score(10)}, want: PriorityLow, wantRule: "score_low"},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := &models.Workflow{ID: "wf", Settings: models.WorkflowSettings{Priority: tt.override}}
			event := &TriggerEvent{Timestamp: now, Source: tt.lead.Source, Lead: tt.lead}

			got, rule := c.Classify(event, wf, tt.lead)
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
			if rule != tt.wantRule {
				t.Errorf("Expected rule %s, got %s", tt.wantRule, rule)
			}

			again, _ := c.Classify(event, wf, tt.lead)
			if again != got {
				t.Errorf("Classification not deterministic: %s then %s", got, again)
			}
		})
	}
}

func TestClassifier_CustomRules(t *testing.T) {
	c := NewClassifier(Rule{
		Name:     "everything_low",
		Priority: PriorityLow,
		Match:    func(ClassifyInput) bool { return true },
	})

	got, rule := c.Classify(&TriggerEvent{}, &models.Workflow{}, &Lead{Score: score(99)})
	if got != PriorityLow || rule != "everything_low" {
		t.Errorf("Expected custom rule to win, got %s via %s", got, rule)
	}
}

func TestPriority_Rank(t *testing.T) {
	ordered := []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() <= ordered[i].Rank() {
			t.Errorf("Expected %s to outrank %s", ordered[i-1], ordered[i])
		}
	}
	if Priority("urgent").Rank() >= PriorityLow.Rank() {
		t.Error("Unknown priority should rank below low")
	}
}
