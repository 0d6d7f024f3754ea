package decision

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/resolvd/resolvd/internal/store"
)

// RatificationRequest is a suggested decision waiting for a human to
// approve or deny it.
type RatificationRequest struct {
	RatificationID string    `json:"ratification_id"`
	NotificationID string    `json:"notification_id"`
	Category       string    `json:"category"`
	ProposedValue  string    `json:"proposed_value"`
	Sender         string    `json:"sender"`
	CreatedAt      time.Time `json:"created_at"`
}

// Ratifier handles the ratification lifecycle: create, wait, respond.
type Ratifier struct {
	mu      sync.Mutex
	pending map[string]chan bool
	store   *store.Service
}

// NewRatifier creates a ratifier. Store may be nil. On creation, any
// stale pending rows left by a previous process are marked as timeout.
func NewRatifier(st *store.Service) *Ratifier {
	r := &Ratifier{
		pending: make(map[string]chan bool),
		store:   st,
	}
	r.cleanupStale()
	return r
}

func (r *Ratifier) cleanupStale() {
	if r.store == nil {
		return
	}
	rows, err := r.store.ListPendingRatifications()
	if err != nil {
		return
	}
	for _, row := range rows {
		_ = r.store.UpdateRatificationStatus(row.RatificationID, store.RatificationTimeout)
	}
}

// Create registers a new ratification request and returns its ID.
func (r *Ratifier) Create(req *RatificationRequest) string {
	id := newRatificationID()
	req.RatificationID = id
	req.CreatedAt = time.Now()

	ch := make(chan bool, 1)
	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()

	if r.store != nil {
		_ = r.store.InsertRatification(id, req.NotificationID, req.Category, req.ProposedValue, req.Sender)
	}
	return id
}

// Wait blocks until the request is responded to or the context expires.
func (r *Ratifier) Wait(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	ch, ok := r.pending[id]
	r.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("no pending ratification: %s", id)
	}

	select {
	case approved := <-ch:
		r.cleanup(id)
		status := store.RatificationDenied
		if approved {
			status = store.RatificationApproved
		}
		if r.store != nil {
			_ = r.store.UpdateRatificationStatus(id, status)
		}
		return approved, nil
	case <-ctx.Done():
		r.cleanup(id)
		if r.store != nil {
			_ = r.store.UpdateRatificationStatus(id, store.RatificationTimeout)
		}
		return false, ctx.Err()
	}
}

// Respond delivers a human decision for a pending request.
func (r *Ratifier) Respond(id string, approved bool) error {
	r.mu.Lock()
	ch, ok := r.pending[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending ratification: %s", id)
	}

	// Non-blocking send (channel is buffered with size 1)
	select {
	case ch <- approved:
	default:
	}
	return nil
}

// Pending returns the number of unresolved in-memory requests.
func (r *Ratifier) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Ratifier) cleanup(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func newRatificationID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return fmt.Sprintf("rat-%d", time.Now().UnixNano())
}
