package store

import (
	"fmt"
	"time"
)

const questionTruncateLen = 500

// DecisionRecord is one row of the decision audit log.
type DecisionRecord struct {
	ID                   int64     `json:"id"`
	NotificationID       string    `json:"notification_id"`
	Domain               string    `json:"domain"`
	Category             string    `json:"category"`
	Question             string    `json:"question"`
	Action               string    `json:"action"`
	DecisionValue        string    `json:"decision_value,omitempty"`
	Confidence           float64   `json:"confidence"`
	TrustLevel           int       `json:"trust_level"`
	Reason               string    `json:"reason,omitempty"`
	RequiresRatification bool      `json:"requires_ratification"`
	CreatedAt            time.Time `json:"created_at"`
}

// InsertDecision appends one audit row. Callers treat failure as
// best-effort: the decision already taken stands either way.
func (s *Service) InsertDecision(r *DecisionRecord) error {
	question := r.Question
	if len(question) > questionTruncateLen {
		question = question[:questionTruncateLen]
	}
	_, err := s.db.Exec(`
		INSERT INTO decisions
			(notification_id, domain, category, question, action, decision_value,
			 confidence, trust_level, reason, requires_ratification)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.NotificationID, r.Domain, r.Category, question, r.Action, r.DecisionValue,
		r.Confidence, r.TrustLevel, r.Reason, r.RequiresRatification)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// ListDecisions returns the most recent audit rows for a notification.
func (s *Service) ListDecisions(notificationID string) ([]DecisionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, notification_id, COALESCE(domain, ''), COALESCE(category, ''),
		       COALESCE(question, ''), action, COALESCE(decision_value, ''),
		       confidence, trust_level, COALESCE(reason, ''), requires_ratification, created_at
		FROM decisions WHERE notification_id = ? ORDER BY id DESC`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var r DecisionRecord
		if err := rows.Scan(&r.ID, &r.NotificationID, &r.Domain, &r.Category,
			&r.Question, &r.Action, &r.DecisionValue, &r.Confidence,
			&r.TrustLevel, &r.Reason, &r.RequiresRatification, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ratification statuses.
const (
	RatificationPending  = "pending"
	RatificationApproved = "approved"
	RatificationDenied   = "denied"
	RatificationTimeout  = "timeout"
)

// RatificationRecord is a persisted pending-ratification row.
type RatificationRecord struct {
	RatificationID string     `json:"ratification_id"`
	NotificationID string     `json:"notification_id"`
	Category       string     `json:"category"`
	ProposedValue  string     `json:"proposed_value"`
	Sender         string     `json:"sender"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// InsertRatification persists a new pending ratification (best-effort).
func (s *Service) InsertRatification(ratificationID, notificationID, category, proposedValue, sender string) error {
	_, err := s.db.Exec(`
		INSERT INTO ratifications (ratification_id, notification_id, category, proposed_value, sender, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ratificationID, notificationID, category, proposedValue, sender, RatificationPending)
	if err != nil {
		return fmt.Errorf("insert ratification: %w", err)
	}
	return nil
}

// UpdateRatificationStatus resolves a ratification row.
func (s *Service) UpdateRatificationStatus(ratificationID, status string) error {
	_, err := s.db.Exec(`UPDATE ratifications SET status = ?, resolved_at = ? WHERE ratification_id = ?`,
		status, time.Now().UTC(), ratificationID)
	if err != nil {
		return fmt.Errorf("update ratification: %w", err)
	}
	return nil
}

// ListPendingRatifications returns all unresolved ratification rows.
func (s *Service) ListPendingRatifications() ([]RatificationRecord, error) {
	rows, err := s.db.Query(`
		SELECT ratification_id, notification_id, COALESCE(category, ''),
		       COALESCE(proposed_value, ''), COALESCE(sender, ''), status, created_at
		FROM ratifications WHERE status = ?`, RatificationPending)
	if err != nil {
		return nil, fmt.Errorf("list ratifications: %w", err)
	}
	defer rows.Close()

	var out []RatificationRecord
	for rows.Next() {
		var r RatificationRecord
		if err := rows.Scan(&r.RatificationID, &r.NotificationID, &r.Category,
			&r.ProposedValue, &r.Sender, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
