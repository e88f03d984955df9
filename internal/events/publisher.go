package events

import (
	"context"
	"fmt"

	"foodie-delivery/internal/metrics"
	"foodie-delivery/internal/models"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Publisher publishes the delivery service's outbound events. A circuit
// breaker in front of the broker keeps a dead broker from stalling the
// synchronous API paths that publish after a committed state change.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[any]
}

// NewPublisher wraps a watermill publisher with the service's event types.
func NewPublisher(pub message.Publisher) *Publisher {
	settings := gobreaker.Settings{Name: "broker-publish"}
	return &Publisher{
		publisher: pub,
		breaker:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

// PublishDeliveryAssigned announces a successful assignment.
func (p *Publisher) PublishDeliveryAssigned(ctx context.Context, event models.DeliveryAssignedEvent) error {
	return p.publish(ctx, models.TopicDeliveryAssigned, event)
}

// PublishStatusUpdated republishes a normalized status change for downstream
// collaborators.
func (p *Publisher) PublishStatusUpdated(ctx context.Context, event models.DeliveryStatusEvent) error {
	return p.publish(ctx, models.TopicDeliveryStatusUpdated, event)
}

func (p *Publisher) publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events.publish %s: %w", topic, err)
	}

	msg := message.NewMessage(uuid.New().String(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set(originMetadataKey, originValue)

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(topic, msg)
	})
	if err != nil {
		return fmt.Errorf("events.publish %s: %w", topic, err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(topic).Inc()
	return nil
}
