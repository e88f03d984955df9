package models

import "time"

// Status is the lifecycle state of a delivery. Transitions only ever move
// forward: pending -> accepted -> collected -> delivered, with cancelled as
// a terminal branch off pending. The cancelled value is reserved; no cancel
// operation is exposed yet, but validators must reject writes that use it
// incorrectly.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusCollected Status = "collected"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCollected, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether next directly follows s in the state
// machine. Re-applying the current status is not a transition; callers treat
// that case as an idempotent no-op.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted || next == StatusCancelled
	case StatusAccepted:
		return next == StatusCollected
	case StatusCollected:
		return next == StatusDelivered
	default:
		return false
	}
}

// Previous returns the status that must be current for a forward transition
// into s via a status update. Only collected and delivered are reachable this
// way; acceptance binds a rider and goes through the accept path instead.
func (s Status) Previous() (Status, bool) {
	switch s {
	case StatusCollected:
		return StatusAccepted, true
	case StatusDelivered:
		return StatusCollected, true
	default:
		return "", false
	}
}

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// Validate checks the coordinate ranges.
func (p GeoPoint) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// Delivery represents the tracked fulfillment of one order, from restaurant
// pickup to customer drop-off. It is 1:1 with an order; order_id and the two
// locations are immutable after creation. Only status, rider_id and the
// transition timestamps mutate, and only forward.
type Delivery struct {
	ID                 string     `json:"delivery_id"`
	OrderID            string     `json:"order_id"`
	RiderID            *string    `json:"rider_id,omitempty"`
	Status             Status     `json:"status"`
	RestaurantLocation GeoPoint   `json:"restaurant_location"`
	CustomerLocation   GeoPoint   `json:"customer_location"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty"`
	CollectedAt        *time.Time `json:"collected_at,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CreateDeliveryRequest is the body for POST /deliveries (manual/testing
// flows; production deliveries are normally created by the order_created
// consumer).
type CreateDeliveryRequest struct {
	OrderID            string   `json:"order_id" validate:"required"`
	RestaurantLocation GeoPoint `json:"restaurant_location" validate:"required"`
	CustomerLocation   GeoPoint `json:"customer_location" validate:"required"`
}

// AcceptDeliveryRequest is the body for PUT /deliveries/:id/accept.
type AcceptDeliveryRequest struct {
	RiderID string `json:"riderId" validate:"required"`
}

// UpdateStatusRequest is the body for PUT /deliveries/:id/status.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// RiderLocationRequest is the body for PUT /deliveries/:id/location, the
// HTTP fallback for riders without a live socket.
type RiderLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// NearbyDelivery is a pending delivery surfaced through the discovery
// listing, annotated with its straight-line distance from the query point.
type NearbyDelivery struct {
	*Delivery
	DistanceKm float64 `json:"distance_km"`
}

// TrackResponse is the payload for GET /deliveries/:id/track: the record
// plus the degenerate two-point route and a time estimate for UI rendering.
type TrackResponse struct {
	Delivery        *Delivery  `json:"delivery"`
	Route           []GeoPoint `json:"route"`
	EstimatedMins   int        `json:"estimated_minutes"`
	TrackingEnabled bool       `json:"tracking_enabled"`
}

// ErrorResponse is the uniform error body returned by the API.
type ErrorResponse struct {
	Message string `json:"message"`
}
