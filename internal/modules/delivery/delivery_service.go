package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodie-delivery/internal/models"
	"foodie-delivery/pkg/geo"

	"github.com/rs/zerolog"
)

// StatusBroadcaster fans a status change out to every realtime client
// subscribed to the delivery. Implemented by the realtime hub.
type StatusBroadcaster interface {
	BroadcastStatus(deliveryID string, status models.Status, orderID string, at time.Time)
}

// StatusPublisher republishes a status change on the message broker for
// downstream collaborators (order, notification). Implemented by the events
// publisher.
type StatusPublisher interface {
	PublishStatusUpdated(ctx context.Context, event models.DeliveryStatusEvent) error
}

// RiderPositionSink records a rider's latest position for candidate lookup.
// Implemented by the Redis rider locator.
type RiderPositionSink interface {
	Update(ctx context.Context, riderID string, location models.GeoPoint) error
}

// ServiceInterface defines the contract for the delivery service.
type ServiceInterface interface {
	CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (*models.Delivery, error)
	GetDelivery(ctx context.Context, deliveryID string) (*models.Delivery, error)
	GetDeliveryByOrder(ctx context.Context, orderID string) (*models.Delivery, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Delivery, error)
	ListByRider(ctx context.Context, riderID string) ([]*models.Delivery, error)
	GetActiveForRider(ctx context.Context, riderID string) (*models.Delivery, error)
	ListNearby(ctx context.Context, origin models.GeoPoint, maxDistanceKm float64) ([]*models.NearbyDelivery, error)
	// UpdateStatus is the authoritative status-change path: it advances the
	// state machine, broadcasts to subscribed clients and republishes the
	// event for other services.
	UpdateStatus(ctx context.Context, deliveryID string, next models.Status) (*models.Delivery, error)
	// ApplyStatusEvent advances the state machine for a status change that
	// originated on the broker and broadcasts it; republishing is the
	// bridge's job.
	ApplyStatusEvent(ctx context.Context, deliveryID string, next models.Status) (*models.Delivery, error)
	UpdateRiderLocation(ctx context.Context, deliveryID string, location models.GeoPoint) error
	Track(ctx context.Context, deliveryID string) (*models.TrackResponse, error)
}

// Service implements the delivery business logic.
type Service struct {
	repo        RepositoryInterface
	broadcaster StatusBroadcaster
	publisher   StatusPublisher
	positions   RiderPositionSink
	logger      zerolog.Logger
}

// NewService creates a new delivery service.
func NewService(repo RepositoryInterface, broadcaster StatusBroadcaster, publisher StatusPublisher, positions RiderPositionSink, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		broadcaster: broadcaster,
		publisher:   publisher,
		positions:   positions,
		logger:      logger.With().Str("component", "delivery-service").Logger(),
	}
}

// CreateDelivery creates a pending delivery for an order. Exactly one
// delivery may exist per order; a second create fails with ErrDuplicateOrder.
func (s *Service) CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (*models.Delivery, error) {
	if err := req.RestaurantLocation.Validate(); err != nil {
		return nil, err
	}
	if err := req.CustomerLocation.Validate(); err != nil {
		return nil, err
	}

	d, err := s.repo.Create(ctx, req.OrderID, req.RestaurantLocation, req.CustomerLocation)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateOrder) {
			return nil, models.ErrDuplicateOrder
		}
		return nil, fmt.Errorf("service.CreateDelivery: %w", err)
	}

	s.logger.Info().Str("delivery_id", d.ID).Str("order_id", d.OrderID).Msg("delivery created")
	return d, nil
}

// GetDelivery retrieves a single delivery.
func (s *Service) GetDelivery(ctx context.Context, deliveryID string) (*models.Delivery, error) {
	return s.repo.FindByID(ctx, deliveryID)
}

// GetDeliveryByOrder retrieves the delivery created for an order.
func (s *Service) GetDeliveryByOrder(ctx context.Context, orderID string) (*models.Delivery, error) {
	return s.repo.FindByOrderID(ctx, orderID)
}

// ListByStatus lists deliveries in a given status.
func (s *Service) ListByStatus(ctx context.Context, status models.Status) ([]*models.Delivery, error) {
	if !status.Valid() {
		return nil, models.ErrInvalidStatus
	}
	return s.repo.ListByStatus(ctx, status)
}

// ListByRider lists every delivery assigned to a rider.
func (s *Service) ListByRider(ctx context.Context, riderID string) ([]*models.Delivery, error) {
	return s.repo.ListByRider(ctx, riderID)
}

// GetActiveForRider returns the rider's in-flight delivery, or ErrNotFound.
func (s *Service) GetActiveForRider(ctx context.Context, riderID string) (*models.Delivery, error) {
	return s.repo.FindActiveByRider(ctx, riderID)
}

// ListNearby surfaces pending deliveries within maxDistanceKm of the origin,
// measured from the restaurant. It filters over the pending set with the
// Haversine distance rather than a geospatial index; unmatched deliveries
// are rediscovered here until a rider accepts them.
func (s *Service) ListNearby(ctx context.Context, origin models.GeoPoint, maxDistanceKm float64) ([]*models.NearbyDelivery, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if maxDistanceKm <= 0 {
		maxDistanceKm = 5
	}

	pending, err := s.repo.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("service.ListNearby: %w", err)
	}

	nearby := make([]*models.NearbyDelivery, 0, len(pending))
	for _, d := range pending {
		dist := geo.DistanceKm(origin, d.RestaurantLocation)
		if dist <= maxDistanceKm {
			nearby = append(nearby, &models.NearbyDelivery{Delivery: d, DistanceKm: dist})
		}
	}
	return nearby, nil
}

// UpdateStatus applies a rider-initiated status change, then notifies both
// the realtime subscribers and the broker. The broadcast and the republish
// ride on a state change that has already committed; their failures are
// logged, not surfaced, because the client must not re-issue a transition
// that succeeded.
func (s *Service) UpdateStatus(ctx context.Context, deliveryID string, next models.Status) (*models.Delivery, error) {
	d, err := s.transition(ctx, deliveryID, next)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		event := models.DeliveryStatusEvent{
			DeliveryID: d.ID,
			Status:     d.Status,
			OrderID:    d.OrderID,
			Timestamp:  d.UpdatedAt,
		}
		if err := s.publisher.PublishStatusUpdated(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("delivery_id", d.ID).Msg("failed to publish status update")
		}
	}
	return d, nil
}

// ApplyStatusEvent applies a broker-originated status change and broadcasts
// it to subscribed clients. This path exists so a status change coming from
// another service still reaches clients on the socket.
func (s *Service) ApplyStatusEvent(ctx context.Context, deliveryID string, next models.Status) (*models.Delivery, error) {
	return s.transition(ctx, deliveryID, next)
}

func (s *Service) transition(ctx context.Context, deliveryID string, next models.Status) (*models.Delivery, error) {
	if !next.Valid() {
		return nil, models.ErrInvalidTransition
	}

	d, err := s.repo.TransitionStatus(ctx, deliveryID, next)
	if err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastStatus(d.ID, d.Status, d.OrderID, d.UpdatedAt)
	}
	return d, nil
}

// UpdateRiderLocation is the HTTP fallback for riders without a live socket.
// It refreshes the rider's position for candidate lookup and acknowledges;
// fan-out to tracking clients is the socket path's job.
func (s *Service) UpdateRiderLocation(ctx context.Context, deliveryID string, location models.GeoPoint) error {
	if err := location.Validate(); err != nil {
		return err
	}

	d, err := s.repo.FindByID(ctx, deliveryID)
	if err != nil {
		return err
	}
	if d.RiderID == nil {
		// No rider bound yet; nothing to record.
		return nil
	}
	if s.positions == nil {
		return nil
	}
	return s.positions.Update(ctx, *d.RiderID, location)
}

// Track returns the delivery together with its straight-line route and a
// time estimate for the remaining restaurant-to-customer leg.
func (s *Service) Track(ctx context.Context, deliveryID string) (*models.TrackResponse, error) {
	d, err := s.repo.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	distance := geo.DistanceKm(d.RestaurantLocation, d.CustomerLocation)
	return &models.TrackResponse{
		Delivery:        d,
		Route:           geo.StraightLineRoute(d.RestaurantLocation, d.CustomerLocation),
		EstimatedMins:   geo.EstimateMinutes(distance),
		TrackingEnabled: !d.Status.Terminal(),
	}, nil
}
