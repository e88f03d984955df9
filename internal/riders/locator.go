// Package riders provides candidate rider lookup by position. The identity
// collaborator keeps rider positions fresh through location pushes; this
// package answers "who is near this restaurant" for the assignment engine.
package riders

import (
	"context"
	"fmt"
	"time"

	"foodie-delivery/internal/models"

	"github.com/redis/go-redis/v9"
)

const riderGeoKey = "riders:positions"

// Candidate is a rider considered for assignment.
type Candidate struct {
	ID       string
	Location models.GeoPoint
}

// Locator abstracts candidate rider lookup by location and radius, so the
// assignment engine stays testable against a fake.
type Locator interface {
	// Nearby returns riders within radiusKm of origin, nearest first.
	Nearby(ctx context.Context, origin models.GeoPoint, radiusKm float64) ([]Candidate, error)
	// Update records a rider's latest position.
	Update(ctx context.Context, riderID string, location models.GeoPoint) error
	// Remove drops a rider from the candidate set.
	Remove(ctx context.Context, riderID string) error
}

// RedisLocator implements Locator over a Redis GEO set.
type RedisLocator struct {
	client *redis.Client
}

// NewRedisLocator creates a locator over the given Redis client.
func NewRedisLocator(client *redis.Client) *RedisLocator {
	return &RedisLocator{client: client}
}

// Nearby searches the GEO set around origin, sorted ascending by distance.
func (l *RedisLocator) Nearby(ctx context.Context, origin models.GeoPoint, radiusKm float64) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	results, err := l.client.GeoSearchLocation(ctx, riderGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  origin.Longitude,
			Latitude:   origin.Latitude,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("riders.Nearby: %w", err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, Candidate{
			ID: r.Name,
			Location: models.GeoPoint{
				Latitude:  r.Latitude,
				Longitude: r.Longitude,
			},
		})
	}
	return candidates, nil
}

// Update records the rider's latest position.
func (l *RedisLocator) Update(ctx context.Context, riderID string, location models.GeoPoint) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := l.client.GeoAdd(ctx, riderGeoKey, &redis.GeoLocation{
		Name:      riderID,
		Longitude: location.Longitude,
		Latitude:  location.Latitude,
	}).Err()
	if err != nil {
		return fmt.Errorf("riders.Update: %w", err)
	}
	return nil
}

// Remove drops the rider from the candidate set.
func (l *RedisLocator) Remove(ctx context.Context, riderID string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := l.client.ZRem(ctx, riderGeoKey, riderID).Err(); err != nil {
		return fmt.Errorf("riders.Remove: %w", err)
	}
	return nil
}
