package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"stageflow/internal/domain"
)

const outboxKey = "stageflow:notify:outbox"

// Outbox is the redis-list notification outbox. The engine enqueues events
// here (its Notifier); the dispatcher drains them and publishes. Losing the
// pub/sub hop therefore never loses the handoff from the engine.
type Outbox struct {
	client *redis.Client
	key    string
}

func NewOutbox(client *redis.Client) *Outbox {
	return &Outbox{client: client, key: outboxKey}
}

// Notify appends the event to the end of the list.
func (o *Outbox) Notify(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return o.client.RPush(ctx, o.key, payload).Err()
}

// Dequeue blocks until an event is available and removes it from the front.
func (o *Outbox) Dequeue(ctx context.Context) (domain.NotificationEvent, error) {
	var event domain.NotificationEvent
	// BLPop returns a slice: [key, element]
	result, err := o.client.BLPop(ctx, 0*time.Second, o.key).Result()
	if err != nil {
		return event, err
	}
	err = json.Unmarshal([]byte(result[1]), &event)
	return event, err
}
