package models

import "testing"

func TestStatusCanTransitionTo(t *testing.T) {
	statuses := []Status{StatusPending, StatusAccepted, StatusCollected, StatusDelivered, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusAccepted}:    true,
		{StatusPending, StatusCancelled}:   true,
		{StatusAccepted, StatusCollected}:  true,
		{StatusCollected, StatusDelivered}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			got := from.CanTransitionTo(to)
			want := allowed[[2]Status{from, to}]
			if got != want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAccepted, StatusCollected, StatusDelivered, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("Valid(%s) = false, want true", s)
		}
	}
	for _, s := range []Status{"", "in_transit", "PENDING", "done"} {
		if s.Valid() {
			t.Errorf("Valid(%s) = true, want false", s)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusDelivered.Terminal() || !StatusCancelled.Terminal() {
		t.Error("delivered and cancelled must be terminal")
	}
	if StatusPending.Terminal() || StatusAccepted.Terminal() || StatusCollected.Terminal() {
		t.Error("pending, accepted and collected must not be terminal")
	}
}

func TestGeoPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		point   GeoPoint
		wantErr bool
	}{
		{"valid", GeoPoint{Latitude: 6.9271, Longitude: 79.8612}, false},
		{"edge of range", GeoPoint{Latitude: -90, Longitude: 180}, false},
		{"latitude too high", GeoPoint{Latitude: 90.1, Longitude: 0}, true},
		{"latitude too low", GeoPoint{Latitude: -91, Longitude: 0}, true},
		{"longitude too high", GeoPoint{Latitude: 0, Longitude: 180.5}, true},
		{"longitude too low", GeoPoint{Latitude: 0, Longitude: -181}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.point, err, tt.wantErr)
			}
		})
	}
}
