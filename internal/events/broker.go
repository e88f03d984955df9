// Package events connects the delivery core to the message broker: it
// consumes order_created and delivery_status_updated from other services and
// publishes delivery_assigned and normalized delivery_status_updated events.
// Delivery is at-least-once; every consumer in this package is idempotent.
package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// originMetadataKey marks every message this service publishes, so the
// bridge can drop its own republished status events instead of consuming
// them again.
const (
	originMetadataKey = "origin"
	originValue       = "delivery-service"
)

// BrokerConfig holds NATS connection settings.
type BrokerConfig struct {
	URL            string
	QueueGroup     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	AckWaitTimeout time.Duration
}

// DefaultBrokerConfig returns production defaults for the given URL.
func DefaultBrokerConfig(url string) BrokerConfig {
	return BrokerConfig{
		URL:            url,
		QueueGroup:     "delivery-service",
		MaxReconnects:  10,
		ReconnectWait:  2 * time.Second,
		AckWaitTimeout: 30 * time.Second,
	}
}

func natsOptions(cfg BrokerConfig, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

// NewNATSPublisher creates a JetStream publisher with message-id based
// deduplication and bounded publish retries.
func NewNATSPublisher(cfg BrokerConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOptions(cfg, logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create broker publisher: %w", err)
	}
	return pub, nil
}

// NewNATSSubscriber creates a durable JetStream subscriber. Consumers in the
// same queue group load-balance across service instances; messages are acked
// only after successful processing and redelivered otherwise.
func NewNATSSubscriber(cfg BrokerConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		NatsOptions:      natsOptions(cfg, logger),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			DurablePrefix: cfg.QueueGroup,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.AckWait(cfg.AckWaitTimeout),
				natsgo.DeliverNew(),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create broker subscriber: %w", err)
	}
	return sub, nil
}
