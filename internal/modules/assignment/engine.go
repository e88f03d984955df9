// Package assignment binds pending deliveries to nearby, available riders.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"foodie-delivery/internal/metrics"
	"foodie-delivery/internal/models"
	"foodie-delivery/internal/modules/delivery"
	"foodie-delivery/internal/riders"
	"foodie-delivery/pkg/geo"

	"github.com/rs/zerolog"
)

// DefaultRadiusKm is the candidate search radius when none is configured.
const DefaultRadiusKm = 5.0

// Engine selects and binds riders for pending deliveries. Binding goes
// through the store's conditional accept, so two engines (or an engine and a
// manual accept) racing on the same delivery resolve to exactly one winner.
type Engine struct {
	repo     delivery.RepositoryInterface
	locator  riders.Locator
	radiusKm float64
	logger   zerolog.Logger
}

// NewEngine creates an assignment engine searching within radiusKm of the
// restaurant.
func NewEngine(repo delivery.RepositoryInterface, locator riders.Locator, radiusKm float64, logger zerolog.Logger) *Engine {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	return &Engine{
		repo:     repo,
		locator:  locator,
		radiusKm: radiusKm,
		logger:   logger.With().Str("component", "assignment").Logger(),
	}
}

// AutoAssign binds the delivery to the nearest available rider. It returns
// ErrNoRiderAvailable when no candidate is in range, leaving the delivery
// pending for rider-initiated discovery. A lost accept race returns
// ErrDeliveryConflict without retry; looping here would only thrash against
// the winner.
func (e *Engine) AutoAssign(ctx context.Context, d *models.Delivery) (*models.Delivery, error) {
	if d.Status != models.StatusPending {
		return nil, models.ErrDeliveryConflict
	}

	candidates, err := e.locator.Nearby(ctx, d.RestaurantLocation, e.radiusKm)
	if err != nil {
		return nil, fmt.Errorf("assignment.AutoAssign: %w", err)
	}

	available := e.filterAvailable(ctx, candidates)
	if len(available) == 0 {
		metrics.AssignmentsTotal.WithLabelValues("no_rider").Inc()
		return nil, models.ErrNoRiderAvailable
	}

	chosen := nearest(d.RestaurantLocation, available)

	assigned, err := e.repo.TransitionAccept(ctx, d.ID, chosen.ID)
	if err != nil {
		if errors.Is(err, models.ErrDeliveryConflict) {
			// Someone accepted between candidate lookup and the write.
			metrics.AssignmentsTotal.WithLabelValues("conflict").Inc()
			e.logger.Debug().Str("delivery_id", d.ID).Msg("assignment lost accept race")
		}
		return nil, err
	}

	metrics.AssignmentsTotal.WithLabelValues("assigned").Inc()
	e.logger.Info().
		Str("delivery_id", assigned.ID).
		Str("rider_id", chosen.ID).
		Msg("delivery auto-assigned")
	return assigned, nil
}

// Accept is the manual path: a rider picked the delivery from the nearby
// listing. Same conflict semantics as auto-assignment.
func (e *Engine) Accept(ctx context.Context, deliveryID, riderID string) (*models.Delivery, error) {
	return e.repo.TransitionAccept(ctx, deliveryID, riderID)
}

// filterAvailable drops candidates that already hold an active delivery.
// A lookup failure for one rider skips that rider rather than failing the
// whole attempt.
func (e *Engine) filterAvailable(ctx context.Context, candidates []riders.Candidate) []riders.Candidate {
	available := candidates[:0]
	for _, c := range candidates {
		_, err := e.repo.FindActiveByRider(ctx, c.ID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			available = append(available, c)
		case err != nil:
			e.logger.Warn().Err(err).Str("rider_id", c.ID).Msg("skipping rider, active-delivery lookup failed")
		}
	}
	return available
}

// nearest picks the candidate minimizing surface distance to the restaurant,
// breaking ties by rider id ascending for determinism.
func nearest(origin models.GeoPoint, candidates []riders.Candidate) riders.Candidate {
	type scored struct {
		riders.Candidate
		distance float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{Candidate: c, distance: geo.DistanceKm(origin, c.Location)}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked[0].Candidate
}
