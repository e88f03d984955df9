package models

import (
	"errors"
	"time"
)

// Broker topic names. order_created is consumed from the order service;
// delivery_assigned is published after a successful auto-assignment;
// delivery_status_updated is both consumed (status changes made by other
// services) and republished in normalized form for downstream consumers.
const (
	TopicOrderCreated          = "order_created"
	TopicDeliveryAssigned      = "delivery_assigned"
	TopicDeliveryStatusUpdated = "delivery_status_updated"
)

// OrderCreatedEvent announces a finalized order that needs a delivery.
type OrderCreatedEvent struct {
	OrderID            string   `json:"order_id"`
	RestaurantLocation GeoPoint `json:"restaurant_location"`
	CustomerLocation   GeoPoint `json:"customer_location"`
}

// Validate checks the event at the deserialization boundary so business
// logic never sees a malformed payload.
func (e *OrderCreatedEvent) Validate() error {
	if e.OrderID == "" {
		return errors.New("order_created: missing order_id")
	}
	if err := e.RestaurantLocation.Validate(); err != nil {
		return errors.New("order_created: invalid restaurant_location")
	}
	if err := e.CustomerLocation.Validate(); err != nil {
		return errors.New("order_created: invalid customer_location")
	}
	return nil
}

// DeliveryAssignedEvent announces that a pending delivery was bound to a
// rider.
type DeliveryAssignedEvent struct {
	DeliveryID string `json:"delivery_id"`
	OrderID    string `json:"order_id"`
	RiderID    string `json:"rider_id"`
	Status     Status `json:"status"`
}

// DeliveryStatusEvent carries a delivery status change across services.
// OrderID and Timestamp are filled on the normalized republish; inbound
// events may omit them.
type DeliveryStatusEvent struct {
	DeliveryID string    `json:"delivery_id"`
	Status     Status    `json:"status"`
	OrderID    string    `json:"order_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validate checks the event at the deserialization boundary.
func (e *DeliveryStatusEvent) Validate() error {
	if e.DeliveryID == "" {
		return errors.New("delivery_status_updated: missing delivery_id")
	}
	if !e.Status.Valid() {
		return errors.New("delivery_status_updated: unknown status")
	}
	return nil
}
