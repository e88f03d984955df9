package delivery

import (
	"context"
	"errors"
	"fmt"

	"foodie-delivery/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the delivery store. It is the
// single shared mutable resource of the service; every state-changing write
// is an individually atomic statement.
type RepositoryInterface interface {
	Create(ctx context.Context, orderID string, restaurant, customer models.GeoPoint) (*models.Delivery, error)
	FindByID(ctx context.Context, deliveryID string) (*models.Delivery, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Delivery, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Delivery, error)
	ListByRider(ctx context.Context, riderID string) ([]*models.Delivery, error)
	// FindActiveByRider returns the most recently updated accepted or
	// collected delivery for the rider, or ErrNotFound.
	FindActiveByRider(ctx context.Context, riderID string) (*models.Delivery, error)
	// TransitionAccept binds a rider to a pending delivery. The update is
	// conditional on status = 'pending'; a concurrent second caller gets
	// ErrDeliveryConflict, which guarantees at most one rider is ever bound.
	TransitionAccept(ctx context.Context, deliveryID, riderID string) (*models.Delivery, error)
	// TransitionStatus advances the delivery one step along the forward
	// chain and stamps the matching timestamp. Re-applying the current
	// status returns the record unchanged; anything else off the chain is
	// ErrInvalidTransition.
	TransitionStatus(ctx context.Context, deliveryID string, next models.Status) (*models.Delivery, error)
}

// Repository implements RepositoryInterface over PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new delivery repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const deliveryColumns = `id, order_id, rider_id, status,
	restaurant_latitude, restaurant_longitude,
	customer_latitude, customer_longitude,
	accepted_at, collected_at, delivered_at, created_at, updated_at`

func scanDelivery(row pgx.Row) (*models.Delivery, error) {
	var d models.Delivery
	err := row.Scan(
		&d.ID,
		&d.OrderID,
		&d.RiderID,
		&d.Status,
		&d.RestaurantLocation.Latitude,
		&d.RestaurantLocation.Longitude,
		&d.CustomerLocation.Latitude,
		&d.CustomerLocation.Longitude,
		&d.AcceptedAt,
		&d.CollectedAt,
		&d.DeliveredAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}
	return &d, nil
}

// Create inserts a new pending delivery. The delivery id is generated from a
// sequence so ids stay short and ordered (DLV000001, DLV000002, ...). A
// unique violation on order_id surfaces as ErrDuplicateOrder.
func (r *Repository) Create(ctx context.Context, orderID string, restaurant, customer models.GeoPoint) (*models.Delivery, error) {
	query := `
		INSERT INTO deliveries (
			id, order_id, status,
			restaurant_latitude, restaurant_longitude,
			customer_latitude, customer_longitude
		)
		VALUES (
			'DLV' || lpad(nextval('deliveries_id_seq')::text, 6, '0'),
			$1, 'pending', $2, $3, $4, $5
		)
		RETURNING ` + deliveryColumns

	row := r.db.QueryRow(ctx, query, orderID,
		restaurant.Latitude, restaurant.Longitude,
		customer.Latitude, customer.Longitude)

	d, err := scanDelivery(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrDuplicateOrder
		}
		return nil, fmt.Errorf("repo.Create: %w", err)
	}
	return d, nil
}

// FindByID retrieves a single delivery by its ID.
func (r *Repository) FindByID(ctx context.Context, deliveryID string) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`
	d, err := scanDelivery(r.db.QueryRow(ctx, query, deliveryID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repo.FindByID: %w", err)
	}
	return d, nil
}

// FindByOrderID retrieves the delivery created for an order.
func (r *Repository) FindByOrderID(ctx context.Context, orderID string) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE order_id = $1`
	d, err := scanDelivery(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repo.FindByOrderID: %w", err)
	}
	return d, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Delivery, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []*models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deliveries, nil
}

// ListByStatus retrieves all deliveries in the given status, newest first.
func (r *Repository) ListByStatus(ctx context.Context, status models.Status) ([]*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE status = $1 ORDER BY created_at DESC`
	deliveries, err := r.list(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("repo.ListByStatus: %w", err)
	}
	return deliveries, nil
}

// ListByRider retrieves all deliveries ever assigned to a rider.
func (r *Repository) ListByRider(ctx context.Context, riderID string) ([]*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE rider_id = $1 ORDER BY created_at DESC`
	deliveries, err := r.list(ctx, query, riderID)
	if err != nil {
		return nil, fmt.Errorf("repo.ListByRider: %w", err)
	}
	return deliveries, nil
}

// FindActiveByRider returns the rider's current in-flight delivery, if any.
func (r *Repository) FindActiveByRider(ctx context.Context, riderID string) (*models.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE rider_id = $1 AND status IN ('accepted', 'collected')
		ORDER BY updated_at DESC
		LIMIT 1`
	d, err := scanDelivery(r.db.QueryRow(ctx, query, riderID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repo.FindActiveByRider: %w", err)
	}
	return d, nil
}

// TransitionAccept performs the single compare-and-swap write of the store:
// the update applies only while status is still 'pending', so exactly one of
// any number of racing callers succeeds. No external locking is involved.
func (r *Repository) TransitionAccept(ctx context.Context, deliveryID, riderID string) (*models.Delivery, error) {
	query := `
		UPDATE deliveries
		SET rider_id = $2,
			status = 'accepted',
			accepted_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + deliveryColumns

	d, err := scanDelivery(r.db.QueryRow(ctx, query, deliveryID, riderID))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("repo.TransitionAccept: %w", err)
	}

	// No row matched: either the delivery does not exist, or someone else
	// accepted it first.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM deliveries WHERE id = $1)`, deliveryID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("repo.TransitionAccept exists: %w", err)
	}
	if !exists {
		return nil, models.ErrNotFound
	}
	return nil, models.ErrDeliveryConflict
}

// TransitionStatus advances a delivery along the forward chain. The update is
// conditional on the expected predecessor status, so a stale or reordered
// event can never regress state; "already there" resolves as a no-op success.
func (r *Repository) TransitionStatus(ctx context.Context, deliveryID string, next models.Status) (*models.Delivery, error) {
	prev, ok := next.Previous()
	if !ok {
		// Not reachable through a status update; could still be a no-op
		// replay of the current status.
		return r.resolveStalledTransition(ctx, deliveryID, next)
	}

	var timestampColumn string
	switch next {
	case models.StatusCollected:
		timestampColumn = "collected_at"
	case models.StatusDelivered:
		timestampColumn = "delivered_at"
	}

	query := fmt.Sprintf(`
		UPDATE deliveries
		SET status = $2,
			%s = now(),
			updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+deliveryColumns, timestampColumn)

	d, err := scanDelivery(r.db.QueryRow(ctx, query, deliveryID, next, prev))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("repo.TransitionStatus: %w", err)
	}
	return r.resolveStalledTransition(ctx, deliveryID, next)
}

// resolveStalledTransition decides why a conditional status update matched no
// row: unknown delivery, idempotent replay, or an illegal jump.
func (r *Repository) resolveStalledTransition(ctx context.Context, deliveryID string, next models.Status) (*models.Delivery, error) {
	current, err := r.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if current.Status == next {
		return current, nil
	}
	return nil, models.ErrInvalidTransition
}
