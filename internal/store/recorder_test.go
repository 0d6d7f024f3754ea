package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/resolvd/resolvd/internal/events"
	"github.com/resolvd/resolvd/internal/notification"
)

func recorderStore(t *testing.T) *Service {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "recorder.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecorderMirrorsQueueUpdate(t *testing.T) {
	s := recorderStore(t)
	r := NewRecorder(s)

	n := &notification.Notification{
		ID:                "up-1",
		SenderID:          "alice",
		Message:           "Proceed?",
		ResponseRequested: true,
		ResponseType:      notification.ResponseYesNo,
		TimeoutSeconds:    3600,
	}
	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate, n)

	got, err := s.GetNotification("up-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != notification.StateDelivered {
		t.Errorf("state = %q, want delivered", got.State)
	}
	if got.ExpiresAt == nil {
		t.Error("expires_at not computed from timeout")
	}

	// Replay of the same event is a no-op.
	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate, n)
	again, _ := s.GetNotification("up-1")
	if again.State != notification.StateDelivered {
		t.Errorf("replay changed state to %q", again.State)
	}
}

func TestRecorderRecordsUpstreamResponse(t *testing.T) {
	s := recorderStore(t)
	r := NewRecorder(s)

	n := &notification.Notification{
		ID:                "up-2",
		SenderID:          "alice",
		Message:           "Proceed?",
		ResponseRequested: true,
		ResponseValue:     "yes",
	}
	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate, n)

	got, err := s.GetNotification("up-2")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != notification.StateResponded || got.ResponseValue != "yes" {
		t.Errorf("state = %q value = %q", got.State, got.ResponseValue)
	}
}

func TestRecorderIgnoresOtherEvents(t *testing.T) {
	s := recorderStore(t)
	r := NewRecorder(s)

	r.HandleEvent(context.Background(), events.TypeJobStateTransition, &notification.Notification{ID: "up-3"})
	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate, nil)

	if _, err := s.GetNotification("up-3"); err == nil {
		t.Error("job transition must not be mirrored")
	}
}

func TestIngestedNotificationIsSwept(t *testing.T) {
	s := recorderStore(t)
	r := NewRecorder(s)

	created := time.Now().UTC().Add(-2 * time.Hour)
	r.HandleEvent(context.Background(), events.TypeNotificationQueueUpdate, &notification.Notification{
		ID:                "up-4",
		SenderID:          "alice",
		Message:           "Proceed?",
		ResponseRequested: true,
		TimeoutSeconds:    3600,
		CreatedAt:         created,
	})

	ids, err := s.SweepExpired(time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "up-4" {
		t.Fatalf("swept %v", ids)
	}
	got, _ := s.GetNotification("up-4")
	if got.State != notification.StateExpired {
		t.Errorf("state = %q", got.State)
	}
}
