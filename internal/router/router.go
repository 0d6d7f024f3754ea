// Package router converts one inbound notification event into zero or one
// external response submissions.
package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/resolvd/resolvd/internal/events"
	"github.com/resolvd/resolvd/internal/notification"
	"github.com/resolvd/resolvd/internal/sink"
	"github.com/resolvd/resolvd/internal/store"
	"github.com/resolvd/resolvd/internal/strategy"
)

// Submitter commits one response to the answer sink.
type Submitter interface {
	SubmitResponse(ctx context.Context, notificationID, value string) (*sink.Result, error)
}

// Options configures a Router.
type Options struct {
	Chain           *strategy.Chain
	Sink            Submitter
	Store           *store.Service // optional local lifecycle mirror
	AcceptedSenders []string
	DryRun          bool
	Verbose         bool
}

// Router owns the strategy chain and the per-event decision of whether to
// answer. The strategy list and sender allow-list are read-only after
// construction; counters are atomic because events for distinct
// notifications are handled concurrently.
type Router struct {
	chain           *strategy.Chain
	sink            Submitter
	store           *store.Service
	acceptedSenders []string
	dryRun          bool
	verbose         bool

	processed      atomic.Int64
	answered       atomic.Int64
	skipped        atomic.Int64
	errors         atomic.Int64
	senderRejected atomic.Int64
	ignored        atomic.Int64

	tierMu   sync.Mutex
	tierHits map[string]int64
}

// Stats is a point-in-time snapshot of the router counters.
type Stats struct {
	Processed      int64            `json:"processed"`
	Answered       int64            `json:"answered"`
	Skipped        int64            `json:"skipped"`
	Errors         int64            `json:"errors"`
	SenderRejected int64            `json:"sender_rejected"`
	Ignored        int64            `json:"ignored"`
	TierHits       map[string]int64 `json:"tier_hits"`
}

// New creates a Router.
func New(opts Options) *Router {
	return &Router{
		chain:           opts.Chain,
		sink:            opts.Sink,
		store:           opts.Store,
		acceptedSenders: opts.AcceptedSenders,
		dryRun:          opts.DryRun,
		verbose:         opts.Verbose,
		tierHits:        make(map[string]int64),
	}
}

// HandleEvent processes one inbound event. Only notification_queue_update
// events are acted on; everything else is counted and ignored.
func (r *Router) HandleEvent(ctx context.Context, eventType string, n *notification.Notification) {
	if eventType != events.TypeNotificationQueueUpdate {
		if eventType == events.TypeJobStateTransition && r.verbose {
			slog.Debug("Job state transition observed", "event_type", eventType)
		}
		r.ignored.Add(1)
		return
	}
	r.processed.Add(1)

	if n == nil || n.ID == "" {
		r.errors.Add(1)
		slog.Error("Notification event missing id")
		return
	}
	if !n.ResponseRequested {
		r.skipped.Add(1)
		return
	}

	if !notification.SenderAllowed(n.SenderID, r.acceptedSenders) {
		r.senderRejected.Add(1)
		slog.Debug("Sender rejected", "notification_id", n.ID, "sender", n.SenderID)
		return
	}

	// Dry-run declines immediately; no strategy is consulted.
	if r.dryRun {
		decline := notification.CannedDecline(n.ResponseType)
		r.submit(ctx, n.ID, decline)
		r.skipped.Add(1)
		slog.Info("Dry-run decline", "notification_id", n.ID, "value", decline)
		return
	}

	answer, tier := r.chain.Resolve(ctx, n)
	if answer == "" {
		r.skipped.Add(1)
		slog.Info("No strategy answered", "notification_id", n.ID)
		return
	}

	r.tierMu.Lock()
	r.tierHits[tier]++
	r.tierMu.Unlock()

	if r.submit(ctx, n.ID, answer) {
		r.answered.Add(1)
		slog.Info("Notification answered", "notification_id", n.ID, "tier", tier)
	}
}

// submit performs the single sink call for this event. Failures are
// counted and logged, never retried: the transport is at-least-once, so a
// later duplicate delivery gets another chance without risking a double
// side effect here.
func (r *Router) submit(ctx context.Context, id, value string) bool {
	if _, err := r.sink.SubmitResponse(ctx, id, value); err != nil {
		r.errors.Add(1)
		slog.Error("Response submission failed", "notification_id", id, "error", err)
		return false
	}
	if r.store != nil {
		if err := r.store.RecordResponse(id, value); err != nil {
			slog.Warn("Local response record failed", "notification_id", id, "error", err)
		}
	}
	return true
}

// Stats returns a snapshot of the counters.
func (r *Router) Stats() Stats {
	r.tierMu.Lock()
	tiers := make(map[string]int64, len(r.tierHits))
	for k, v := range r.tierHits {
		tiers[k] = v
	}
	r.tierMu.Unlock()

	return Stats{
		Processed:      r.processed.Load(),
		Answered:       r.answered.Load(),
		Skipped:        r.skipped.Load(),
		Errors:         r.errors.Load(),
		SenderRejected: r.senderRejected.Load(),
		Ignored:        r.ignored.Load(),
		TierHits:       tiers,
	}
}
