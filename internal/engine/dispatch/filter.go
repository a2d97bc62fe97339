package dispatch

import "leadflow/internal/platform/models"

type SkipReason string

const (
	ReasonSourceMismatch SkipReason = "source_mismatch"
	ReasonTagsMismatch   SkipReason = "tags_mismatch"
)

// SourceAll in a trigger config accepts events from any source.
const SourceAll = "all"

// Match reports whether event satisfies cfg. Unset constraints match everything.
// Source is compared case-sensitively and checked before tags.
func Match(cfg models.TriggerConfig, event *TriggerEvent) (bool, SkipReason) {
	if cfg.Source != "" && cfg.Source != SourceAll && cfg.Source != event.Source {
		return false, ReasonSourceMismatch
	}

	if len(cfg.Tags) > 0 && !hasAnyTag(event.Lead, cfg.Tags) {
		return false, ReasonTagsMismatch
	}

	return true, ""
}

func hasAnyTag(lead *Lead, want []string) bool {
	if lead == nil || len(lead.Tags) == 0 {
		return false
	}
	have := make(map[string]struct{}, len(lead.Tags))
	for _, t := range lead.Tags {
		have[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := have[t]; ok {
			return true
		}
	}
	return false
}
