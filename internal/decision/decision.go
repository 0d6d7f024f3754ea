// Package decision implements graduated autonomy for notifications whose
// answer constitutes an action: classify, gate by earned trust, then
// shadow, suggest, act, or defer.
package decision

import (
	"context"
)

// Dispositions of a classified decision.
const (
	ActionShadow  = "shadow"
	ActionSuggest = "suggest"
	ActionAct     = "act"
	ActionDefer   = "defer"
)

// Trust levels. L1 is the lowest (observe only); L3 and above may act.
const (
	TrustL1 = 1
	TrustL2 = 2
	TrustL3 = 3
)

// Global trust modes, an additional ceiling independent of per-category
// trust levels.
const (
	ModeShadow  = "shadow"
	ModeSuggest = "suggest"
	ModeActive  = "active"
)

// Result is a domain strategy's verdict for one notification.
type Result struct {
	Category             string  `json:"category"`
	Action               string  `json:"action"`
	Confidence           float64 `json:"confidence"`
	TrustLevel           int     `json:"trust_level"`
	Value                string  `json:"value,omitempty"`
	Reason               string  `json:"reason,omitempty"`
	RequiresRatification bool    `json:"requires_ratification"`
}

// DomainStrategy classifies a pending decision. Implementations are
// pluggable per domain; when none is configured every decision is forced
// to shadow.
type DomainStrategy interface {
	Domain() string
	Evaluate(ctx context.Context, message, senderID string, meta map[string]any) (*Result, error)
}

// actionRank orders dispositions by how much autonomy they exercise.
// defer is outside the ordering: it is an explicit refusal, not a level.
func actionRank(action string) int {
	switch action {
	case ActionShadow:
		return 0
	case ActionSuggest:
		return 1
	case ActionAct:
		return 2
	}
	return -1
}

// ceilingForLevel maps a trust level to the highest action it permits.
func ceilingForLevel(level int) string {
	switch {
	case level <= TrustL1:
		return ActionShadow
	case level == TrustL2:
		return ActionSuggest
	default:
		return ActionAct
	}
}

// ceilingForMode maps the global trust mode to its ceiling action.
func ceilingForMode(mode string) string {
	switch mode {
	case ModeShadow:
		return ActionShadow
	case ModeSuggest:
		return ActionSuggest
	default:
		return ActionAct
	}
}

// clampAction lowers a requested action to the ceiling when it exceeds
// it. A strategy may return less autonomy than allowed, never more.
func clampAction(requested, ceiling string) string {
	if requested == ActionDefer {
		return ActionDefer
	}
	if actionRank(requested) > actionRank(ceiling) {
		return ceiling
	}
	return requested
}
