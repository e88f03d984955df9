package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateOrder is returned when a delivery already exists for the
	// order. Creation is idempotent per order: the second create fails, the
	// first record stands.
	ErrDuplicateOrder = errors.New("a delivery already exists for this order")

	// ErrDeliveryConflict is returned when an accept race is lost: the
	// delivery exists but is no longer pending. Conflicts are routine
	// outcomes of concurrent operation, not failures.
	ErrDeliveryConflict = errors.New("delivery is no longer available")

	// ErrInvalidTransition is returned when a status update does not follow
	// the current status in the forward chain.
	ErrInvalidTransition = errors.New("invalid delivery status transition")

	// ErrNoRiderAvailable is the terminal outcome of one assignment attempt
	// when no candidate rider is in range. The delivery stays pending and is
	// surfaced again through nearby-delivery discovery.
	ErrNoRiderAvailable = errors.New("no rider available for assignment")

	// ErrInvalidCoordinates is returned for latitude/longitude values
	// outside their valid ranges.
	ErrInvalidCoordinates = errors.New("coordinates out of range")

	// ErrInvalidStatus is returned when a caller supplies a status value
	// outside the known enumeration.
	ErrInvalidStatus = errors.New("unknown delivery status")
)
