package delivery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"foodie-delivery/internal/models"
)

// fakeRepository is an in-memory stand-in for the PostgreSQL repository.
// Every write holds the mutex for the whole read-check-write, mirroring the
// store's individually atomic statements, which makes it a faithful fixture
// for the accept-race tests.
type fakeRepository struct {
	mu      sync.Mutex
	seq     int
	byID    map[string]*models.Delivery
	byOrder map[string]string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byID:    make(map[string]*models.Delivery),
		byOrder: make(map[string]string),
	}
}

func (r *fakeRepository) Create(_ context.Context, orderID string, restaurant, customer models.GeoPoint) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byOrder[orderID]; ok {
		return nil, models.ErrDuplicateOrder
	}

	r.seq++
	now := time.Now()
	d := &models.Delivery{
		ID:                 fmt.Sprintf("DLV%06d", r.seq),
		OrderID:            orderID,
		Status:             models.StatusPending,
		RestaurantLocation: restaurant,
		CustomerLocation:   customer,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	r.byID[d.ID] = d
	r.byOrder[orderID] = d.ID
	return copyDelivery(d), nil
}

func (r *fakeRepository) FindByID(_ context.Context, deliveryID string) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[deliveryID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyDelivery(d), nil
}

func (r *fakeRepository) FindByOrderID(_ context.Context, orderID string) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyDelivery(r.byID[id]), nil
}

func (r *fakeRepository) ListByStatus(_ context.Context, status models.Status) ([]*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Delivery
	for _, d := range r.byID {
		if d.Status == status {
			out = append(out, copyDelivery(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepository) ListByRider(_ context.Context, riderID string) ([]*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Delivery
	for _, d := range r.byID {
		if d.RiderID != nil && *d.RiderID == riderID {
			out = append(out, copyDelivery(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepository) FindActiveByRider(_ context.Context, riderID string) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active *models.Delivery
	for _, d := range r.byID {
		if d.RiderID == nil || *d.RiderID != riderID {
			continue
		}
		if d.Status != models.StatusAccepted && d.Status != models.StatusCollected {
			continue
		}
		if active == nil || d.UpdatedAt.After(active.UpdatedAt) {
			active = d
		}
	}
	if active == nil {
		return nil, models.ErrNotFound
	}
	return copyDelivery(active), nil
}

func (r *fakeRepository) TransitionAccept(_ context.Context, deliveryID, riderID string) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[deliveryID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if d.Status != models.StatusPending {
		return nil, models.ErrDeliveryConflict
	}

	now := time.Now()
	rid := riderID
	d.RiderID = &rid
	d.Status = models.StatusAccepted
	d.AcceptedAt = &now
	d.UpdatedAt = now
	return copyDelivery(d), nil
}

func (r *fakeRepository) TransitionStatus(_ context.Context, deliveryID string, next models.Status) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[deliveryID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if d.Status == next {
		return copyDelivery(d), nil
	}
	prev, ok := next.Previous()
	if !ok || d.Status != prev {
		return nil, models.ErrInvalidTransition
	}

	now := time.Now()
	d.Status = next
	switch next {
	case models.StatusCollected:
		d.CollectedAt = &now
	case models.StatusDelivered:
		d.DeliveredAt = &now
	}
	d.UpdatedAt = now
	return copyDelivery(d), nil
}

func copyDelivery(d *models.Delivery) *models.Delivery {
	out := *d
	return &out
}
