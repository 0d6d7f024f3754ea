package strategy

import (
	"context"
	"log/slog"

	"github.com/resolvd/resolvd/internal/notification"
)

// Chain walks an ordered strategy list and returns the first non-empty
// answer. There is no cross-tier scoring: each tier either answers or
// abstains, so ties are impossible by construction.
type Chain struct {
	strategies []Strategy
}

// NewChain creates a chain over the given strategies in priority order.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// ForMode builds the chain the configured strategy_mode allows.
func ForMode(mode string, script *ScriptMatcher, rules *RuleTable, fallback *CloudFallback) *Chain {
	switch mode {
	case ModeScriptMatcherOnly:
		return NewChain(script)
	case ModeRulesOnly:
		return NewChain(rules)
	default:
		return NewChain(script, rules, fallback)
	}
}

// Resolve returns the first answer produced by an eligible tier, together
// with the tier's name. A tier that errors is skipped and logged; one bad
// strategy must not block fallback. Returns ("", "") when every tier
// abstains.
func (c *Chain) Resolve(ctx context.Context, n *notification.Notification) (answer, tier string) {
	for _, s := range c.strategies {
		if s == nil || !s.CanHandle(n) {
			continue
		}
		got, err := s.Respond(ctx, n)
		if err != nil {
			slog.Warn("Strategy failed, trying next tier", "strategy", s.Name(), "notification_id", n.ID, "error", err)
			continue
		}
		if got != "" {
			return got, s.Name()
		}
	}
	return "", ""
}

// Tiers returns the names of the configured tiers in order.
func (c *Chain) Tiers() []string {
	out := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		if s != nil {
			out = append(out, s.Name())
		}
	}
	return out
}
