package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"stageflow/internal/domain"
)

const eventChannel = "stageflow:events"

// Publisher broadcasts notification events over redis pub/sub for downstream
// delivery (mail, chat, whatever subscribes). Fire-and-forget by design.
type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client, channel: eventChannel}
}

func (p *Publisher) Publish(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// Subscribe opens a continuous event stream, mainly for integration tests
// and local tooling; production consumers subscribe with their own clients.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan domain.NotificationEvent, error) {
	pubsub := p.client.Subscribe(ctx, p.channel)

	msgChan := make(chan domain.NotificationEvent)
	go func() {
		defer close(msgChan)
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			default:
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					continue
				}
				var event domain.NotificationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err == nil {
					msgChan <- event
				}
			}
		}
	}()

	return msgChan, nil
}
