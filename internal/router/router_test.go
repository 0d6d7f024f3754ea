package router

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/resolvd/resolvd/internal/events"
	"github.com/resolvd/resolvd/internal/notification"
	"github.com/resolvd/resolvd/internal/sink"
	"github.com/resolvd/resolvd/internal/store"
	"github.com/resolvd/resolvd/internal/strategy"
)

type recordingSink struct {
	mu          sync.Mutex
	submissions map[string]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{submissions: make(map[string]string)}
}

func (r *recordingSink) SubmitResponse(_ context.Context, id, value string) (*sink.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions[id] = value
	return &sink.Result{Status: "recorded"}, nil
}

func (r *recordingSink) get(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.submissions[id]
	return v, ok
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.submissions)
}

func rulesOnlyChain(senders []string) *strategy.Chain {
	rules := strategy.NewRuleTable([]strategy.Rule{
		{Name: "proceed", Keywords: []string{"proceed"}, Answer: "yes"},
	}, senders)
	return strategy.ForMode(strategy.ModeRulesOnly, nil, rules, nil)
}

func queueEvent(id, sender, message string) *notification.Notification {
	return &notification.Notification{
		ID:                id,
		SenderID:          sender,
		Message:           message,
		ResponseRequested: true,
		ResponseType:      notification.ResponseYesNo,
	}
}

func TestRouterAnswersViaRules(t *testing.T) {
	snk := newRecordingSink()
	r := New(Options{Chain: rulesOnlyChain(nil), Sink: snk})

	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate,
		queueEvent("n1", "alice", "Shall I proceed with the rollout?"))

	if v, ok := snk.get("n1"); !ok || v != "yes" {
		t.Fatalf("submitted %q ok=%v, want yes", v, ok)
	}
	stats := r.Stats()
	if stats.Answered != 1 || stats.TierHits[strategy.TierRules] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRouterDryRunDeclinesWithoutStrategies(t *testing.T) {
	snk := newRecordingSink()
	r := New(Options{Chain: strategy.NewChain(), Sink: snk, DryRun: true})

	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate,
		queueEvent("n2", "alice", "Shall I proceed?"))

	if v, _ := snk.get("n2"); v != "no" {
		t.Fatalf("dry-run yes_no decline = %q, want no", v)
	}

	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate, &notification.Notification{
		ID:                "n3",
		SenderID:          "alice",
		Message:           "Pick one",
		ResponseRequested: true,
		ResponseType:      notification.ResponseMultipleChoice,
	})
	if v, _ := snk.get("n3"); v != "cancel" {
		t.Fatalf("dry-run non-yes_no decline = %q, want cancel", v)
	}

	stats := r.Stats()
	if stats.Answered != 0 || stats.Skipped != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.TierHits) != 0 {
		t.Errorf("dry-run must not attribute a tier: %v", stats.TierHits)
	}
}

func TestRouterRejectsUnapprovedSender(t *testing.T) {
	snk := newRecordingSink()
	r := New(Options{Chain: rulesOnlyChain(nil), Sink: snk, AcceptedSenders: []string{"alice"}})

	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate,
		queueEvent("n4", "eve", "proceed?"))

	if snk.count() != 0 {
		t.Fatal("rejected sender must not be answered")
	}
	if got := r.Stats().SenderRejected; got != 1 {
		t.Errorf("sender_rejected = %d", got)
	}
}

func TestRouterSkipsWhenNoResponseRequested(t *testing.T) {
	snk := newRecordingSink()
	r := New(Options{Chain: rulesOnlyChain(nil), Sink: snk})

	n := queueEvent("n5", "alice", "FYI: job finished, proceed logged")
	n.ResponseRequested = false
	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate, n)

	if snk.count() != 0 {
		t.Fatal("informational notification must not be answered")
	}
	if got := r.Stats().Skipped; got != 1 {
		t.Errorf("skipped = %d", got)
	}
}

func TestRouterMissingIDIsAnError(t *testing.T) {
	snk := newRecordingSink()
	r := New(Options{Chain: rulesOnlyChain(nil), Sink: snk})

	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate,
		queueEvent("", "alice", "proceed?"))
	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate, nil)

	if got := r.Stats().Errors; got != 2 {
		t.Errorf("errors = %d, want 2", got)
	}
}

func TestRouterIgnoresOtherEventTypes(t *testing.T) {
	snk := newRecordingSink()
	r := New(Options{Chain: rulesOnlyChain(nil), Sink: snk})

	r.HandleEvent(context.Background(), events.TypeJobStateTransition,
		queueEvent("n6", "alice", "proceed?"))
	r.HandleEvent(context.Background(), "unknown_event", queueEvent("n7", "alice", "proceed?"))

	if snk.count() != 0 {
		t.Fatal("non-queue events must not produce submissions")
	}
	stats := r.Stats()
	if stats.Ignored != 2 || stats.Processed != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRouterRecordsAnswerLocally(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	snk := newRecordingSink()
	r := New(Options{Chain: rulesOnlyChain(nil), Sink: snk, Store: st})

	n := queueEvent("n9", "alice", "proceed with the rollout?")
	if err := st.Ingest(n); err != nil {
		t.Fatal(err)
	}
	if err := st.MarkDelivered("n9"); err != nil {
		t.Fatal(err)
	}

	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate, n)

	got, err := st.GetNotification("n9")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != notification.StateResponded || got.ResponseValue != "yes" {
		t.Errorf("state = %q value = %q", got.State, got.ResponseValue)
	}
}

func TestRouterAbstainMeansNoSubmission(t *testing.T) {
	snk := newRecordingSink()
	r := New(Options{Chain: rulesOnlyChain(nil), Sink: snk})

	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate,
		queueEvent("n8", "alice", "completely unrelated question"))

	if snk.count() != 0 {
		t.Fatal("abstaining chain must not submit")
	}
	if got := r.Stats().Skipped; got != 1 {
		t.Errorf("skipped = %d", got)
	}
}
