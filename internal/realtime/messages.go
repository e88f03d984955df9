package realtime

import (
	"errors"

	"foodie-delivery/internal/models"

	"github.com/goccy/go-json"
)

// Socket event names. Client-to-server events drive group membership and
// rider pushes; server-to-client events are the fan-out.
const (
	EventJoinDelivery  = "join:delivery"
	EventLeaveDelivery = "leave:delivery"
	EventRiderLocation = "rider:location"
	EventStatusUpdate  = "delivery:status_update"

	EventLocationBroadcast = "delivery:location"
	EventStatusBroadcast   = "delivery:status_updated"
)

// Envelope is the wire frame for every socket message: an event tag and a
// payload whose shape the tag decides. Payloads are validated here, at the
// deserialization boundary, never inside business logic.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload subscribes or unsubscribes the connection for one delivery.
type JoinPayload struct {
	DeliveryID string `json:"deliveryId"`
}

func (p *JoinPayload) Validate() error {
	if p.DeliveryID == "" {
		return errors.New("missing deliveryId")
	}
	return nil
}

// RiderLocationPayload is a rider's position push. Latitude and longitude
// are pointers so absent fields are distinguishable from zero values.
type RiderLocationPayload struct {
	DeliveryID string   `json:"deliveryId"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

func (p *RiderLocationPayload) Validate() error {
	if p.DeliveryID == "" {
		return errors.New("missing deliveryId")
	}
	if p.Latitude == nil || p.Longitude == nil {
		return errors.New("missing coordinates")
	}
	point := models.GeoPoint{Latitude: *p.Latitude, Longitude: *p.Longitude}
	return point.Validate()
}

// StatusUpdatePayload is the rider's best-effort UI echo of a status change.
// The authoritative transition goes through the delivery API; this echo only
// keeps the rider's own screen current without a broker round trip.
type StatusUpdatePayload struct {
	DeliveryID string `json:"deliveryId"`
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp,omitempty"`
}

func (p *StatusUpdatePayload) Validate() error {
	if p.DeliveryID == "" {
		return errors.New("missing deliveryId")
	}
	if !models.Status(p.Status).Valid() {
		return errors.New("unknown status")
	}
	return nil
}

// LocationBroadcast is fanned out to every member of the delivery's group.
type LocationBroadcast struct {
	DeliveryID string          `json:"deliveryId"`
	Location   models.GeoPoint `json:"location"`
	Timestamp  string          `json:"timestamp"`
}

// StatusBroadcast is fanned out when a delivery's status changes.
type StatusBroadcast struct {
	DeliveryID string `json:"deliveryId"`
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	OrderID    string `json:"order_id,omitempty"`
}

func newEnvelope(event string, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}
