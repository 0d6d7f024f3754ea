// Package store provides the durable notification lifecycle store and the
// decision audit log, backed by a single sqlite database.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/resolvd/resolvd/internal/notification"
)

var (
	// ErrNotFound is returned when no row exists for the given id.
	ErrNotFound = errors.New("notification not found")
	// ErrResponseConflict is returned when a different response value is
	// recorded against an already-responded notification.
	ErrResponseConflict = errors.New("notification already responded with a different value")
	// ErrTerminalState is returned for writes against expired or deleted rows.
	ErrTerminalState = errors.New("notification is in a terminal state")
)

// Service owns the sqlite database and all state transitions.
type Service struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open store db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	// Best-effort migration for pre-abstract databases (no-op if present).
	_, _ = db.Exec(`ALTER TABLE notifications ADD COLUMN abstract TEXT DEFAULT ''`)
	return &Service{db: db}, nil
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}

// CreateParams carries the caller-supplied fields for a new notification.
type CreateParams struct {
	SenderID          string
	RecipientID       string
	Title             string
	Message           string
	Type              string
	Priority          string
	Abstract          string
	ResponseRequested bool
	ResponseType      string
	ResponseDefault   string
	ResponseOptions   []string
	TimeoutSeconds    int
}

// CreateNotification inserts a new row in state "created" and returns its id.
// expires_at is computed only when a response is requested with a timeout.
func (s *Service) CreateNotification(p CreateParams) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	expiresAt := notification.ExpiryFor(now, p.ResponseRequested, p.TimeoutSeconds)

	ntype := p.Type
	if ntype == "" {
		ntype = notification.TypeCustom
	}
	priority := p.Priority
	if priority == "" {
		priority = notification.PriorityMedium
	}
	options, _ := json.Marshal(p.ResponseOptions)

	_, err := s.db.Exec(`
		INSERT INTO notifications
			(id, sender_id, recipient_id, title, message, type, priority, abstract,
			 response_requested, response_type, response_default, response_options,
			 timeout_seconds, state, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.SenderID, p.RecipientID, p.Title, p.Message, ntype, priority, p.Abstract,
		p.ResponseRequested, p.ResponseType, p.ResponseDefault, string(options),
		p.TimeoutSeconds, notification.StateCreated, now, timePtr(expiresAt))
	if err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// MarkDelivered transitions a created notification to delivered. Calling it
// again on a delivered row is a no-op; terminal rows are rejected.
func (s *Service) MarkDelivered(id string) error {
	state, _, err := s.currentState(id)
	if err != nil {
		return err
	}
	switch state {
	case notification.StateDelivered:
		return nil
	case notification.StateCreated:
		_, err := s.db.Exec(`UPDATE notifications SET state = ?, delivered_at = ? WHERE id = ? AND state = ?`,
			notification.StateDelivered, time.Now().UTC(), id, notification.StateCreated)
		return err
	default:
		return ErrTerminalState
	}
}

// RecordResponse sets the terminal responded state. It is idempotent:
// re-recording the identical value on a responded row succeeds as a no-op,
// while a different value is rejected (at-most-one-response invariant).
func (s *Service) RecordResponse(id, value string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var state string
	var existing sql.NullString
	err = tx.QueryRow(`SELECT state, response_value FROM notifications WHERE id = ?`, id).
		Scan(&state, &existing)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read notification: %w", err)
	}

	switch state {
	case notification.StateResponded:
		if existing.Valid && existing.String == value {
			return nil
		}
		return ErrResponseConflict
	case notification.StateExpired, notification.StateDeleted:
		return ErrTerminalState
	}

	_, err = tx.Exec(`UPDATE notifications SET state = ?, responded_at = ?, response_value = ? WHERE id = ?`,
		notification.StateResponded, time.Now().UTC(), value, id)
	if err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	return tx.Commit()
}

// SweepExpired transitions every delivered row whose expiry has passed to
// expired and returns the affected ids. Responded and deleted rows are
// never touched.
func (s *Service) SweepExpired(now time.Time) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT id FROM notifications
		WHERE state = ? AND expires_at IS NOT NULL AND expires_at < ?`,
		notification.StateDelivered, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("scan expirable: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		// The state guard makes the sweep race-free against an in-flight
		// RecordResponse: a responded row no longer matches.
		_, err := s.db.Exec(`UPDATE notifications SET state = ? WHERE id = ? AND state = ?`,
			notification.StateExpired, id, notification.StateDelivered)
		if err != nil {
			return ids, fmt.Errorf("expire %s: %w", id, err)
		}
	}
	return ids, nil
}

// SoftDelete marks a row deleted. The row is retained for audit.
func (s *Service) SoftDelete(id string) error {
	res, err := s.db.Exec(`UPDATE notifications SET state = ?, deleted_at = ? WHERE id = ? AND state != ?`,
		notification.StateDeleted, time.Now().UTC(), id, notification.StateDeleted)
	if err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Either missing or already deleted; deleting twice is a no-op.
		var exists int
		if err := s.db.QueryRow(`SELECT 1 FROM notifications WHERE id = ?`, id).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
	}
	return nil
}

// GetNotification loads a single row.
func (s *Service) GetNotification(id string) (*notification.Notification, error) {
	var n notification.Notification
	var options string
	var responseValue, responseType, responseDefault sql.NullString
	var deliveredAt, respondedAt, expiresAt, deletedAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT id, sender_id, recipient_id, title, message, type, priority, abstract,
		       response_requested, response_type, response_default, response_options,
		       timeout_seconds, state, response_value,
		       created_at, delivered_at, responded_at, expires_at, deleted_at
		FROM notifications WHERE id = ?`, id).Scan(
		&n.ID, &n.SenderID, &n.RecipientID, &n.Title, &n.Message, &n.Type, &n.Priority, &n.Abstract,
		&n.ResponseRequested, &responseType, &responseDefault, &options,
		&n.TimeoutSeconds, &n.State, &responseValue,
		&n.CreatedAt, &deliveredAt, &respondedAt, &expiresAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}

	n.ResponseType = responseType.String
	n.ResponseDefault = responseDefault.String
	n.ResponseValue = responseValue.String
	_ = json.Unmarshal([]byte(options), &n.ResponseOptions)
	n.DeliveredAt = nullTimePtr(deliveredAt)
	n.RespondedAt = nullTimePtr(respondedAt)
	n.ExpiresAt = nullTimePtr(expiresAt)
	n.DeletedAt = nullTimePtr(deletedAt)
	return &n, nil
}

func (s *Service) currentState(id string) (state string, responseValue sql.NullString, err error) {
	err = s.db.QueryRow(`SELECT state, response_value FROM notifications WHERE id = ?`, id).
		Scan(&state, &responseValue)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sql.NullString{}, ErrNotFound
	}
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("read notification: %w", err)
	}
	return state, responseValue, nil
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
