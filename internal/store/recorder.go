package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/resolvd/resolvd/internal/events"
	"github.com/resolvd/resolvd/internal/notification"
)

// Ingest mirrors an inbound notification into the store under its
// upstream id. An existing row is left untouched, so replays and
// duplicate deliveries are no-ops.
func (s *Service) Ingest(n *notification.Notification) error {
	if n.ID == "" {
		return fmt.Errorf("ingest: missing notification id")
	}
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	expiresAt := n.ExpiresAt
	if expiresAt == nil {
		expiresAt = notification.ExpiryFor(createdAt, n.ResponseRequested, n.TimeoutSeconds)
	}
	options, _ := json.Marshal(n.ResponseOptions)

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO notifications
			(id, sender_id, recipient_id, title, message, type, priority, abstract,
			 response_requested, response_type, response_default, response_options,
			 timeout_seconds, state, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.SenderID, n.RecipientID, n.Title, n.Message, n.Type, n.Priority, n.Abstract,
		n.ResponseRequested, n.ResponseType, n.ResponseDefault, string(options),
		n.TimeoutSeconds, notification.StateCreated, createdAt, timePtr(expiresAt))
	if err != nil {
		return fmt.Errorf("ingest notification: %w", err)
	}
	return nil
}

// Recorder mirrors the inbound event stream into the lifecycle store, so
// the expiry sweeper and audit queries see the same state the upstream
// queue holds. It runs as one more handler on the event loop; all writes
// are best-effort and never affect resolution.
type Recorder struct {
	store *Service
}

// NewRecorder creates a recorder over the given store.
func NewRecorder(s *Service) *Recorder {
	return &Recorder{store: s}
}

// HandleEvent persists one queue-update event.
func (r *Recorder) HandleEvent(_ context.Context, eventType string, n *notification.Notification) {
	if eventType != events.TypeNotificationQueueUpdate || n == nil || n.ID == "" {
		return
	}
	if err := r.store.Ingest(n); err != nil {
		slog.Warn("Notification ingest failed", "notification_id", n.ID, "error", err)
		return
	}
	// A queue-update event means the notification reached us: delivered.
	if err := r.store.MarkDelivered(n.ID); err != nil && !errors.Is(err, ErrTerminalState) {
		slog.Warn("Mark delivered failed", "notification_id", n.ID, "error", err)
	}
	// Upstream may replay an already-answered notification.
	if n.ResponseValue != "" {
		if err := r.store.RecordResponse(n.ID, n.ResponseValue); err != nil {
			slog.Warn("Record upstream response failed", "notification_id", n.ID, "error", err)
		}
	}
}
