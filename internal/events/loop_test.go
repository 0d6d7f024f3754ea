package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/resolvd/resolvd/internal/notification"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHandler) HandleEvent(_ context.Context, eventType string, n *notification.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := ""
	if n != nil {
		id = n.ID
	}
	h.events = append(h.events, eventType+":"+id)
}

func (h *recordingHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func queueUpdate(t *testing.T, id string) []byte {
	t.Helper()
	raw, err := json.Marshal(Envelope{
		EventType: TypeNotificationQueueUpdate,
		Payload: Payload{Notification: &notification.Notification{
			ID: id, SenderID: "alice", ResponseRequested: true,
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestDecode(t *testing.T) {
	env, err := Decode(queueUpdate(t, "n1"))
	if err != nil {
		t.Fatal(err)
	}
	if env.EventType != TypeNotificationQueueUpdate || env.Payload.Notification.ID != "n1" {
		t.Errorf("env = %+v", env)
	}

	if _, err := Decode([]byte("{not json")); err == nil {
		t.Error("expected error on malformed JSON")
	}
	if _, err := Decode([]byte(`{"payload":{}}`)); err == nil {
		t.Error("expected error on missing event_type")
	}
}

func TestLoopDispatchesToAllHandlers(t *testing.T) {
	consumer := NewChannelConsumer()
	h1 := &recordingHandler{}
	h2 := &recordingHandler{}
	loop := NewLoop(consumer, 2, h1, h2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	consumer.Send(ConsumerMessage{Value: queueUpdate(t, "n1")})
	consumer.Send(ConsumerMessage{Value: []byte("garbage")})
	consumer.Send(ConsumerMessage{Value: queueUpdate(t, "n2")})

	deadline := time.After(2 * time.Second)
	for {
		if len(h1.snapshot()) == 2 && len(h2.snapshot()) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("handlers saw %v / %v", h1.snapshot(), h2.snapshot())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}

func TestLoopStopsWhenStreamCloses(t *testing.T) {
	consumer := NewChannelConsumer()
	loop := NewLoop(consumer, 1, &recordingHandler{})

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	_ = consumer.Close()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error on closed stream")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not terminate")
	}
}

func TestSemaphore(t *testing.T) {
	s := NewSemaphore(2)
	s.Acquire()
	s.Acquire()
	if got := s.Available(); got != 0 {
		t.Errorf("available = %d, want 0", got)
	}
	s.Release()
	if got := s.Available(); got != 1 {
		t.Errorf("available = %d, want 1", got)
	}
}
