// Package events consumes the inbound notification event stream and
// dispatches each event to the registered handlers.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/resolvd/resolvd/internal/notification"
)

// Event types delivered by the transport. Only queue updates are acted
// on; job transitions are observed, everything else is ignored.
const (
	TypeNotificationQueueUpdate = "notification_queue_update"
	TypeJobStateTransition      = "job_state_transition"
)

// Envelope is the wire shape of one inbound event.
type Envelope struct {
	EventType string  `json:"event_type"`
	Payload   Payload `json:"payload"`
}

// Payload carries the notification for queue-update events.
type Payload struct {
	Notification *notification.Notification `json:"notification"`
}

// Decode parses a raw transport message into an Envelope.
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if env.EventType == "" {
		return nil, fmt.Errorf("decode event: missing event_type")
	}
	return &env, nil
}
