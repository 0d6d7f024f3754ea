// Package notification defines the unit of work: a pending question or
// pending decision delivered by the event transport.
package notification

import (
	"strings"
	"time"
)

// Notification states.
const (
	StateCreated   = "created"
	StateDelivered = "delivered"
	StateResponded = "responded"
	StateExpired   = "expired"
	StateDeleted   = "deleted"
)

// Notification types.
const (
	TypeTask     = "task"
	TypeProgress = "progress"
	TypeAlert    = "alert"
	TypeCustom   = "custom"
)

// Response types.
const (
	ResponseYesNo          = "yes_no"
	ResponseOpenEnded      = "open_ended"
	ResponseMultipleChoice = "multiple_choice"
	ResponseOpenEndedBatch = "open_ended_batch"
)

// Priorities.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Notification represents a pending question or decision.
type Notification struct {
	ID          string `json:"id"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`

	Title    string `json:"title"`
	Message  string `json:"message"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Abstract string `json:"abstract,omitempty"`

	ResponseRequested bool     `json:"response_requested"`
	ResponseType      string   `json:"response_type,omitempty"`
	ResponseDefault   string   `json:"response_default,omitempty"`
	ResponseOptions   []string `json:"response_options,omitempty"`
	TimeoutSeconds    int      `json:"timeout_seconds,omitempty"`

	State         string     `json:"state,omitempty"`
	ResponseValue string     `json:"response_value,omitempty"`
	CreatedAt     time.Time  `json:"created_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// BaseSender strips an optional "#tag" routing suffix from a sender id.
// "bob#cli" and "bob" identify the same originator.
func BaseSender(senderID string) string {
	if i := strings.Index(senderID, "#"); i >= 0 {
		return senderID[:i]
	}
	return senderID
}

// SenderAllowed reports whether the notification's sender passes the
// prefix allow-list. An empty list allows everyone.
func SenderAllowed(senderID string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}
	base := BaseSender(senderID)
	for _, allowed := range allowlist {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" {
			continue
		}
		if strings.HasPrefix(base, allowed) {
			return true
		}
	}
	return false
}

// Terminal reports whether a state admits no further transitions other
// than soft delete.
func Terminal(state string) bool {
	switch state {
	case StateResponded, StateExpired, StateDeleted:
		return true
	}
	return false
}

// CannedDecline returns the dry-run decline value for a response type:
// "no" for yes/no questions, "cancel" for everything else.
func CannedDecline(responseType string) string {
	if responseType == ResponseYesNo {
		return "no"
	}
	return "cancel"
}

// ExpiryFor computes the expiry timestamp for a notification created at
// the given time. Returns nil unless a response is requested and a
// positive timeout is set.
func ExpiryFor(createdAt time.Time, responseRequested bool, timeoutSeconds int) *time.Time {
	if !responseRequested || timeoutSeconds <= 0 {
		return nil
	}
	t := createdAt.Add(time.Duration(timeoutSeconds) * time.Second)
	return &t
}
