package mq

import (
	"context"
	"encoding/json"
	"log"

	"pawmart/rdx"
)

// Event is a notification destined for an external delivery service. The
// core's responsibility ends at the publish; delivery is someone else's job.
type Event struct {
	Name       string `json:"name"`
	Recipient  string `json:"recipient"`
	EntityType string `json:"entity_type"`
	EntityId   string `json:"entity_id"`
	Detail     string `json:"detail,omitempty"`
}

// Notifier is the fire-and-forget notification collaborator consumed by the
// order, appointment and review components.
type Notifier interface {
	Emit(ctx context.Context, event Event)
}

// RedisNotifier publishes notification events to a Redis channel.
type RedisNotifier struct{}

func NewNotifier() *RedisNotifier { return &RedisNotifier{} }

// Emit publishes the event. Failures are logged, never surfaced: a missed
// notification must not fail the write that triggered it.
func (n *RedisNotifier) Emit(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Emit] Failed to marshal event: %v", err)
		return
	}

	if err := rdx.Conn.Publish(ctx, "notification-events", data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish event to Redis: %v", err)
	}
}

// StartNotificationWorker drains the notification channel and hands each
// event to the logging sink. A real deployment would forward to the push or
// email service here.
func StartNotificationWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, "notification-events")
	ch := sub.Channel()

	log.Println("[NotificationWorker] Listening for notification events...")

	for msg := range ch {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("[NotificationWorker] Failed to parse event: %v", err)
			continue
		}
		log.Printf("[NotificationWorker] %s -> %s (%s/%s)", event.Name, event.Recipient, event.EntityType, event.EntityId)
	}
}
