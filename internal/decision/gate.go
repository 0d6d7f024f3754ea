package decision

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/resolvd/resolvd/internal/events"
	"github.com/resolvd/resolvd/internal/notification"
	"github.com/resolvd/resolvd/internal/sink"
	"github.com/resolvd/resolvd/internal/store"
)

// Submitter commits one response to the answer sink.
type Submitter interface {
	SubmitResponse(ctx context.Context, notificationID, value string) (*sink.Result, error)
}

// Notifier announces a pending ratification to a human channel.
// Best-effort: a notifier failure never affects the decision taken.
type Notifier interface {
	NotifyRatification(ctx context.Context, req *RatificationRequest) error
}

// GateOptions configures a Gate.
type GateOptions struct {
	Strategy        DomainStrategy // nil forces every decision to shadow
	Sink            Submitter
	Store           *store.Service // audit log, best-effort
	Ratifier        *Ratifier
	Notifier        Notifier
	TrustMode       string         // global ceiling: shadow, suggest, active
	TrustLevels     map[string]int // per-category earned trust
	DefaultTrust    int            // trust for unknown categories, default L1
	AcceptedSenders []string
	DryRun          bool
	RatifyTimeout   time.Duration // how long a suggest waits for a human
}

// Gate runs in parallel with the response router over the same event
// stream and gates classified decisions by earned trust.
type Gate struct {
	strategy        DomainStrategy
	sink            Submitter
	store           *store.Service
	ratifier        *Ratifier
	notifier        Notifier
	trustMode       string
	trustLevels     map[string]int
	defaultTrust    int
	acceptedSenders []string
	dryRun          bool
	ratifyTimeout   time.Duration

	evaluated atomic.Int64
	shadowed  atomic.Int64
	suggested atomic.Int64
	acted     atomic.Int64
	deferred  atomic.Int64
	errors    atomic.Int64
}

// GateStats is a point-in-time snapshot of the gate counters.
type GateStats struct {
	Evaluated int64 `json:"evaluated"`
	Shadowed  int64 `json:"shadowed"`
	Suggested int64 `json:"suggested"`
	Acted     int64 `json:"acted"`
	Deferred  int64 `json:"deferred"`
	Errors    int64 `json:"errors"`
}

// NewGate creates a trust gate.
func NewGate(opts GateOptions) *Gate {
	if opts.DefaultTrust <= 0 {
		opts.DefaultTrust = TrustL1
	}
	if opts.RatifyTimeout <= 0 {
		opts.RatifyTimeout = 15 * time.Minute
	}
	return &Gate{
		strategy:        opts.Strategy,
		sink:            opts.Sink,
		store:           opts.Store,
		ratifier:        opts.Ratifier,
		notifier:        opts.Notifier,
		trustMode:       opts.TrustMode,
		trustLevels:     opts.TrustLevels,
		defaultTrust:    opts.DefaultTrust,
		acceptedSenders: opts.AcceptedSenders,
		dryRun:          opts.DryRun,
		ratifyTimeout:   opts.RatifyTimeout,
	}
}

// HandleEvent classifies one notification event and gates the outcome.
func (g *Gate) HandleEvent(ctx context.Context, eventType string, n *notification.Notification) {
	if eventType != events.TypeNotificationQueueUpdate {
		return
	}
	if n == nil || n.ID == "" {
		g.errors.Add(1)
		return
	}
	if !n.ResponseRequested {
		return
	}
	if !notification.SenderAllowed(n.SenderID, g.acceptedSenders) {
		return
	}
	// Dry-run takes precedence over classification. The router already
	// submits the canned decline for this event; classifying on top of
	// that would only produce audit noise.
	if g.dryRun {
		slog.Debug("Dry-run: classifier skipped", "notification_id", n.ID)
		return
	}

	g.evaluated.Add(1)
	result := g.classify(ctx, n)
	g.apply(ctx, n, result)
}

func (g *Gate) classify(ctx context.Context, n *notification.Notification) *Result {
	if g.strategy == nil {
		return &Result{Category: "unclassified", Action: ActionShadow}
	}
	result, err := g.strategy.Evaluate(ctx, n.Message, n.SenderID, map[string]any{
		"title":    n.Title,
		"abstract": n.Abstract,
		"type":     n.Type,
		"priority": n.Priority,
	})
	if err != nil {
		g.errors.Add(1)
		slog.Error("Domain strategy failed", "notification_id", n.ID, "error", err)
		return &Result{Action: ActionDefer, Reason: "domain strategy error: " + err.Error()}
	}
	return result
}

// apply enforces the trust ceiling and carries out the realized action.
func (g *Gate) apply(ctx context.Context, n *notification.Notification, result *Result) {
	level := g.trustFor(result.Category)
	result.TrustLevel = level

	ceiling := ceilingForLevel(level)
	if modeCeiling := ceilingForMode(g.trustMode); actionRank(modeCeiling) < actionRank(ceiling) {
		ceiling = modeCeiling
	}
	realized := clampAction(result.Action, ceiling)
	if realized != result.Action {
		slog.Info("Decision clamped by trust ceiling",
			"notification_id", n.ID, "category", result.Category,
			"requested", result.Action, "realized", realized, "trust_level", level)
	}
	result.Action = realized
	result.RequiresRatification = realized == ActionSuggest

	switch realized {
	case ActionShadow:
		g.shadowed.Add(1)
		g.audit(n, result, "")
		slog.Info("Decision shadowed", "notification_id", n.ID, "category", result.Category)

	case ActionSuggest:
		g.suggested.Add(1)
		g.audit(n, result, result.Value)
		g.suggest(ctx, n, result)

	case ActionAct:
		g.acted.Add(1)
		g.audit(n, result, result.Value)
		if result.Value == "" {
			// Observed upstream as a silent no-op; surfaced here because
			// an act verdict without a value is a domain-strategy bug.
			slog.Warn("Act decision with no value", "notification_id", n.ID, "category", result.Category)
			return
		}
		if _, err := g.sink.SubmitResponse(ctx, n.ID, result.Value); err != nil {
			g.errors.Add(1)
			slog.Error("Autonomous submission failed", "notification_id", n.ID, "error", err)
			return
		}
		slog.Info("Decision committed autonomously",
			"notification_id", n.ID, "category", result.Category, "trust_level", level)

	case ActionDefer:
		g.deferred.Add(1)
		if result.Reason == "" {
			result.Reason = "strategy declined to decide"
		}
		g.audit(n, result, "")
		slog.Info("Decision deferred", "notification_id", n.ID, "reason", result.Reason)
	}
}

// suggest queues the proposed value for human ratification and submits it
// only on approval.
func (g *Gate) suggest(ctx context.Context, n *notification.Notification, result *Result) {
	if g.ratifier == nil {
		slog.Warn("Suggest decision with no ratifier configured", "notification_id", n.ID)
		return
	}
	req := &RatificationRequest{
		NotificationID: n.ID,
		Category:       result.Category,
		ProposedValue:  result.Value,
		Sender:         n.SenderID,
	}
	id := g.ratifier.Create(req)

	if g.notifier != nil {
		if err := g.notifier.NotifyRatification(ctx, req); err != nil {
			slog.Warn("Ratification notify failed", "ratification_id", id, "error", err)
		}
	}
	slog.Info("Decision queued for ratification",
		"notification_id", n.ID, "ratification_id", id, "category", result.Category)

	go func() {
		waitCtx, cancel := context.WithTimeout(context.Background(), g.ratifyTimeout)
		defer cancel()
		approved, err := g.ratifier.Wait(waitCtx, id)
		if err != nil || !approved {
			slog.Info("Ratification not approved", "ratification_id", id, "error", err)
			return
		}
		if _, err := g.sink.SubmitResponse(waitCtx, n.ID, result.Value); err != nil {
			g.errors.Add(1)
			slog.Error("Ratified submission failed", "notification_id", n.ID, "error", err)
			return
		}
		slog.Info("Ratified decision submitted", "notification_id", n.ID, "ratification_id", id)
	}()
}

// audit writes one best-effort decision row. Failure is logged and
// counted, never propagated: the decision already taken stands.
func (g *Gate) audit(n *notification.Notification, result *Result, value string) {
	if g.store == nil {
		return
	}
	domain := ""
	if g.strategy != nil {
		domain = g.strategy.Domain()
	}
	err := g.store.InsertDecision(&store.DecisionRecord{
		NotificationID:       n.ID,
		Domain:               domain,
		Category:             result.Category,
		Question:             n.Message,
		Action:               result.Action,
		DecisionValue:        value,
		Confidence:           result.Confidence,
		TrustLevel:           result.TrustLevel,
		Reason:               result.Reason,
		RequiresRatification: result.RequiresRatification,
	})
	if err != nil {
		g.errors.Add(1)
		slog.Warn("Decision audit write failed", "notification_id", n.ID, "error", err)
	}
}

func (g *Gate) trustFor(category string) int {
	if level, ok := g.trustLevels[category]; ok && level > 0 {
		return level
	}
	return g.defaultTrust
}

// Ratifier exposes the gate's ratifier for the control surface.
func (g *Gate) Ratifier() *Ratifier { return g.ratifier }

// Stats returns a snapshot of the counters.
func (g *Gate) Stats() GateStats {
	return GateStats{
		Evaluated: g.evaluated.Load(),
		Shadowed:  g.shadowed.Load(),
		Suggested: g.suggested.Load(),
		Acted:     g.acted.Load(),
		Deferred:  g.deferred.Load(),
		Errors:    g.errors.Load(),
	}
}
