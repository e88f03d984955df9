package geo

import (
	"testing"

	"foodie-delivery/internal/models"

	"github.com/stretchr/testify/assert"
)

var (
	colomboFort   = models.GeoPoint{Latitude: 6.9271, Longitude: 79.8612}
	colomboMarine = models.GeoPoint{Latitude: 6.9344, Longitude: 79.8428}
	kandy         = models.GeoPoint{Latitude: 7.2906, Longitude: 80.6337}
)

func TestDistanceKm(t *testing.T) {
	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, DistanceKm(colomboFort, kandy), DistanceKm(kandy, colomboFort))
		assert.Equal(t, DistanceKm(colomboFort, colomboMarine), DistanceKm(colomboMarine, colomboFort))
	})

	t.Run("zero for identical points", func(t *testing.T) {
		assert.InDelta(t, 0, DistanceKm(colomboFort, colomboFort), 1e-9)
	})

	t.Run("short hop across the city", func(t *testing.T) {
		// Fort to Marine Drive is a little over two kilometers as the crow
		// flies.
		d := DistanceKm(colomboFort, colomboMarine)
		assert.InDelta(t, 2.2, d, 0.2)
	})

	t.Run("intercity distance", func(t *testing.T) {
		// Colombo to Kandy is roughly 94 km straight-line.
		d := DistanceKm(colomboFort, kandy)
		assert.InDelta(t, 94, d, 3)
	})
}

func TestEstimateMinutes(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		want       int
	}{
		{"zero distance", 0, 0},
		{"half an hour at assumed speed", 15, 30},
		{"rounds to nearest minute", 7.6, 15},
		{"rounds up", 1.3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateMinutes(tt.distanceKm))
		})
	}
}

func TestStraightLineRoute(t *testing.T) {
	route := StraightLineRoute(colomboFort, colomboMarine)
	assert.Equal(t, []models.GeoPoint{colomboFort, colomboMarine}, route)
}
