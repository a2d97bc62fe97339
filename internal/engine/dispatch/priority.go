package dispatch

import (
	"time"

	"leadflow/internal/platform/models"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Rank orders priorities: critical > high > normal > low. Unknown values rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	default:
		return -1
	}
}

const (
	CriticalScore    = 90
	HighScore        = 70
	LowScore         = 30
	RecentLeadWindow = 30 * time.Minute
)

var highPrioritySources = map[string]struct{}{
	"referral":       {},
	"direct":         {},
	"organic_search": {},
}

// ClassifyInput is what every rule predicate sees.
type ClassifyInput struct {
	Event    *TriggerEvent
	Workflow *models.Workflow
	Lead     *Lead
}

func (in ClassifyInput) override() string {
	if in.Workflow == nil {
		return ""
	}
	return in.Workflow.Settings.Priority
}

func (in ClassifyInput) score() (float64, bool) {
	if in.Lead == nil || in.Lead.Score == nil {
		return 0, false
	}
	return *in.Lead.Score, true
}

// recent is false when created_at is unknown.
func (in ClassifyInput) recent() bool {
	if in.Lead == nil || in.Lead.CreatedAt == nil || in.Event == nil {
		return false
	}
	return in.Event.Timestamp.Sub(*in.Lead.CreatedAt) < RecentLeadWindow
}

func (in ClassifyInput) source() string {
	if in.Lead != nil && in.Lead.Source != "" {
		return in.Lead.Source
	}
	if in.Event != nil {
		return in.Event.Source
	}
	return ""
}

type Rule struct {
	Name     string
	Priority Priority
	Match    func(ClassifyInput) bool
}

func overrideIs(p Priority) func(ClassifyInput) bool {
	return func(in ClassifyInput) bool { return in.override() == string(p) }
}

// DefaultRules is the dispatch priority policy, evaluated top-down.
var DefaultRules = []Rule{
	{Name: "override_critical", Priority: PriorityCritical, Match: overrideIs(PriorityCritical)},
	{Name: "score_critical", Priority: PriorityCritical, Match: func(in ClassifyInput) bool {
		s, ok := in.score()
		return ok && s >= CriticalScore
	}},
	{Name: "recent_lead", Priority: PriorityCritical, Match: ClassifyInput.recent},
	{Name: "override_high", Priority: PriorityHigh, Match: overrideIs(PriorityHigh)},
	{Name: "score_high", Priority: PriorityHigh, Match: func(in ClassifyInput) bool {
		s, ok := in.score()
		return ok && s >= HighScore
	}},
	{Name: "high_value_source", Priority: PriorityHigh, Match: func(in ClassifyInput) bool {
		_, ok := highPrioritySources[in.source()]
		return ok
	}},
	{Name: "override_low", Priority: PriorityLow, Match: overrideIs(PriorityLow)},
	{Name: "score_low", Priority: PriorityLow, Match: func(in ClassifyInput) bool {
		s, ok := in.score()
		return ok && s < LowScore
	}},
}

const defaultRuleName = "default"

type Classifier struct {
	rules    []Rule
	fallback Priority
}

// NewClassifier builds a first-match classifier. With no rules it uses DefaultRules.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Classifier{rules: rules, fallback: PriorityNormal}
}

// Classify returns the priority and the name of the rule that produced it.
func (c *Classifier) Classify(event *TriggerEvent, wf *models.Workflow, lead *Lead) (Priority, string) {
	in := ClassifyInput{Event: event, Workflow: wf, Lead: lead}
	for _, rule := range c.rules {
		if rule.Match(in) {
			return rule.Priority, rule.Name
		}
	}
	return c.fallback, defaultRuleName
}
