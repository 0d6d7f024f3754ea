// Package strategy implements the ordered response-resolution chain: a
// fuzzy script matcher, a static rule table, and a general LLM fallback.
package strategy

import (
	"context"

	"github.com/resolvd/resolvd/internal/notification"
)

// Strategy mode constants (which tiers are eligible in the chain).
const (
	ModeScriptMatcherOnly = "script_matcher_only"
	ModeRulesOnly         = "rules_only"
	ModeAuto              = "auto"
)

// Tier names recorded in router metrics.
const (
	TierScript   = "script_matcher"
	TierRules    = "rules"
	TierFallback = "fallback"
)

// Strategy is an ordered candidate for producing an automatic answer.
//
// CanHandle is a cheap, side-effect-free eligibility check. Respond may be
// expensive; it returns "" to signal "no confident answer" and reserves a
// non-nil error for infrastructure failure only.
type Strategy interface {
	Name() string
	CanHandle(n *notification.Notification) bool
	Respond(ctx context.Context, n *notification.Notification) (string, error)
}

// admission is the shared eligibility state each concrete strategy owns.
type admission struct {
	available       bool
	acceptedSenders []string
}

func (a admission) admits(n *notification.Notification) bool {
	if !a.available || !n.ResponseRequested {
		return false
	}
	return notification.SenderAllowed(n.SenderID, a.acceptedSenders)
}
