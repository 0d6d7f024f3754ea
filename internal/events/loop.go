package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/resolvd/resolvd/internal/notification"
)

// Handler consumes one decoded event. The router and the decision
// pipeline both implement this and run independently over the same
// stream.
type Handler interface {
	HandleEvent(ctx context.Context, eventType string, n *notification.Notification)
}

// Loop is the single event-consumer loop for one transport connection.
// Strategy calls can be slow, so each event is handled on a bounded
// worker slot; ordering across distinct notification ids is not
// guaranteed, ordering within one id is preserved by the transport's
// per-channel delivery.
type Loop struct {
	consumer Consumer
	handlers []Handler
	workers  *Semaphore
	wg       sync.WaitGroup
}

// NewLoop creates a consumer loop. maxConcurrent defaults to 8.
func NewLoop(consumer Consumer, maxConcurrent int, handlers ...Handler) *Loop {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Loop{
		consumer: consumer,
		handlers: handlers,
		workers:  NewSemaphore(maxConcurrent),
	}
}

// Run starts the consumer and dispatches events until the context is
// cancelled or the transport connection is lost. Errors local to one
// event never abort the loop; only a closed message stream does.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.consumer.Start(ctx); err != nil {
		return fmt.Errorf("event loop: start consumer: %w", err)
	}
	slog.Info("Event loop started")

	defer l.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Event loop stopped")
			return ctx.Err()
		case msg, ok := <-l.consumer.Messages():
			if !ok {
				return fmt.Errorf("event loop: transport stream closed")
			}
			l.dispatch(ctx, msg)
		}
	}
}

func (l *Loop) dispatch(ctx context.Context, msg ConsumerMessage) {
	env, err := Decode(msg.Value)
	if err != nil {
		slog.Warn("Event loop: dropping malformed event", "topic", msg.Topic, "error", err)
		return
	}

	l.workers.Acquire()
	l.wg.Add(1)
	go func() {
		defer l.workers.Release()
		defer l.wg.Done()
		for _, h := range l.handlers {
			h.HandleEvent(ctx, env.EventType, env.Payload.Notification)
		}
	}()
}
