package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"foodie-delivery/internal/metrics"
	"foodie-delivery/internal/models"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DeliveryStore is the slice of the delivery service the bridge drives.
type DeliveryStore interface {
	CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (*models.Delivery, error)
	GetDeliveryByOrder(ctx context.Context, orderID string) (*models.Delivery, error)
	// ApplyStatusEvent advances the state machine and fans the change out to
	// subscribed realtime clients.
	ApplyStatusEvent(ctx context.Context, deliveryID string, next models.Status) (*models.Delivery, error)
}

// AutoAssigner binds a pending delivery to the nearest available rider.
type AutoAssigner interface {
	AutoAssign(ctx context.Context, d *models.Delivery) (*models.Delivery, error)
}

// Bridge consumes cross-service messages and turns them into store
// operations and outbound events. Handlers ack only after successful
// processing; returning an error nacks the message for redelivery, so every
// handler tolerates seeing the same message twice.
type Bridge struct {
	subscriber message.Subscriber
	publisher  *Publisher
	store      DeliveryStore
	assigner   AutoAssigner
	logger     zerolog.Logger
}

// NewBridge creates the event bridge.
func NewBridge(subscriber message.Subscriber, publisher *Publisher, store DeliveryStore, assigner AutoAssigner, logger zerolog.Logger) *Bridge {
	return &Bridge{
		subscriber: subscriber,
		publisher:  publisher,
		store:      store,
		assigner:   assigner,
		logger:     logger.With().Str("component", "event-bridge").Logger(),
	}
}

// Run consumes both topics until the context is canceled. A consumer that
// fails for any other reason cancels its sibling so the failure surfaces
// immediately instead of leaving the bridge half-alive.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	consume := func(topic string, handler func(context.Context, *message.Message) error) {
		defer wg.Done()
		if err := b.consume(ctx, topic, handler); err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error().Err(err).Str("topic", topic).Msg("consumer stopped")
			errs <- fmt.Errorf("consume %s: %w", topic, err)
			cancel()
		}
	}

	wg.Add(2)
	go consume(models.TopicOrderCreated, b.handleOrderCreated)
	go consume(models.TopicDeliveryStatusUpdated, b.handleStatusUpdated)

	wg.Wait()
	close(errs)
	return <-errs
}

// consume runs one topic's message loop, acking on handler success and
// nacking on failure.
func (b *Bridge) consume(ctx context.Context, topic string, handler func(context.Context, *message.Message) error) error {
	messages, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			metrics.EventsConsumedTotal.WithLabelValues(topic).Inc()
			if err := handler(ctx, msg); err != nil {
				b.logger.Error().Err(err).Str("topic", topic).Str("message_uuid", msg.UUID).Msg("message processing failed, nacking")
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}

// handleOrderCreated creates a delivery for the order and attempts
// auto-assignment. Redelivery of the same event finds the existing record
// through the duplicate-order guard and retries assignment if the record is
// still pending, so a crash between create and assign heals itself.
func (b *Bridge) handleOrderCreated(ctx context.Context, msg *message.Message) error {
	var event models.OrderCreatedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		b.dropInvalid(models.TopicOrderCreated, msg, err)
		return nil
	}
	if err := event.Validate(); err != nil {
		b.dropInvalid(models.TopicOrderCreated, msg, err)
		return nil
	}

	d, err := b.store.CreateDelivery(ctx, models.CreateDeliveryRequest{
		OrderID:            event.OrderID,
		RestaurantLocation: event.RestaurantLocation,
		CustomerLocation:   event.CustomerLocation,
	})
	if errors.Is(err, models.ErrDuplicateOrder) {
		d, err = b.store.GetDeliveryByOrder(ctx, event.OrderID)
	}
	if err != nil {
		return fmt.Errorf("create delivery for order %s: %w", event.OrderID, err)
	}

	return b.autoAssign(ctx, d)
}

func (b *Bridge) autoAssign(ctx context.Context, d *models.Delivery) error {
	if d.Status != models.StatusPending {
		return nil
	}

	assigned, err := b.assigner.AutoAssign(ctx, d)
	switch {
	case errors.Is(err, models.ErrNoRiderAvailable):
		// Terminal outcome of this attempt, not a failure: the delivery
		// stays pending and riders discover it through the nearby listing.
		b.logger.Info().Str("delivery_id", d.ID).Msg("no rider available, delivery left pending")
		return nil
	case errors.Is(err, models.ErrDeliveryConflict):
		// A rider accepted concurrently; nothing left to do.
		return nil
	case err != nil:
		return fmt.Errorf("auto-assign delivery %s: %w", d.ID, err)
	}

	return b.publisher.PublishDeliveryAssigned(ctx, models.DeliveryAssignedEvent{
		DeliveryID: assigned.ID,
		OrderID:    assigned.OrderID,
		RiderID:    *assigned.RiderID,
		Status:     assigned.Status,
	})
}

// handleStatusUpdated applies a status change made by another service, fans
// it out to subscribed clients and republishes the normalized event for
// downstream consumers. Stale or replayed events resolve through the
// forward-only transition rules.
func (b *Bridge) handleStatusUpdated(ctx context.Context, msg *message.Message) error {
	if msg.Metadata.Get(originMetadataKey) == originValue {
		// Our own normalized republish coming back around.
		return nil
	}

	var event models.DeliveryStatusEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		b.dropInvalid(models.TopicDeliveryStatusUpdated, msg, err)
		return nil
	}
	if err := event.Validate(); err != nil {
		b.dropInvalid(models.TopicDeliveryStatusUpdated, msg, err)
		return nil
	}

	d, err := b.store.ApplyStatusEvent(ctx, event.DeliveryID, event.Status)
	switch {
	case errors.Is(err, models.ErrNotFound):
		b.logger.Warn().Str("delivery_id", event.DeliveryID).Msg("status event for unknown delivery, dropping")
		return nil
	case errors.Is(err, models.ErrInvalidTransition):
		// Out-of-order arrival; the record is already past this state.
		b.logger.Debug().Str("delivery_id", event.DeliveryID).Str("status", string(event.Status)).Msg("stale status event ignored")
		return nil
	case err != nil:
		return fmt.Errorf("apply status event for %s: %w", event.DeliveryID, err)
	}

	return b.publisher.PublishStatusUpdated(ctx, models.DeliveryStatusEvent{
		DeliveryID: d.ID,
		Status:     d.Status,
		OrderID:    d.OrderID,
		Timestamp:  d.UpdatedAt,
	})
}

func (b *Bridge) dropInvalid(topic string, msg *message.Message, err error) {
	metrics.EventsInvalidTotal.WithLabelValues(topic).Inc()
	b.logger.Warn().Err(err).Str("topic", topic).Str("message_uuid", msg.UUID).Msg("dropping malformed event")
}
