package mq

import (
	"context"
	"encoding/json"
	"time"
)

// Channel all trainer-facing notification events are published to.
const NotificationChannel = "trainer.notifications"

// Notification event types.
const (
	EventShareCreated       = "share.created"
	EventConnectionAccepted = "connection.accepted"
)

// Event is a domain notification delivered to out-of-process consumers
// (email digests, push relays). The API server only publishes.
type Event struct {
	Type       string    `json:"type"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Notifier publishes domain events to the notification channel. A nil
// Notifier is valid and drops every event, so callers need no branching
// when no broker is configured.
type Notifier struct {
	backend Backend
}

// NewNotifier constructs a Notifier for the provided backend.
func NewNotifier(backend Backend) *Notifier {
	return &Notifier{backend: backend}
}

// Notify publishes one event. Failures are returned, not retried; the
// caller decides whether a dropped notification is fatal.
func (n *Notifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.backend == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = n.backend.Publish(ctx, NotificationChannel, data, map[string]string{"type": event.Type})
	return err
}

// Subscribe consumes events from the notification channel, for worker
// processes built on the same module.
func (n *Notifier) Subscribe(ctx context.Context, handler Handler) error {
	if n == nil || n.backend == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return n.backend.Subscribe(ctx, NotificationChannel, handler)
}

// Close closes the underlying backend.
func (n *Notifier) Close() error {
	if n == nil || n.backend == nil {
		return nil
	}
	return n.backend.Close()
}
