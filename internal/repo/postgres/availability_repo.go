package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
)

type AvailabilityRepository interface {
	// ListOpenSlots returns available, unclaimed slots overlapping
	// [start, end), ordered by start date.
	ListOpenSlots(ctx context.Context, propertyID int64, start, end time.Time) ([]domain.Slot, error)
	// ListSlots returns every slot overlapping [start, end) regardless
	// of claim state, ordered by start date.
	ListSlots(ctx context.Context, propertyID int64, start, end time.Time) ([]domain.Slot, error)
	// UpdateSlotPrices rewrites nightly prices for the given slots.
	UpdateSlotPrices(ctx context.Context, propertyID int64, prices map[int64]float64) error
}

type availabilityRepository struct {
	pool *pgxpool.Pool
}

func NewAvailabilityRepository(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepository{pool: pool}
}

const slotCols = `id, property_id, start_date, end_date, price, is_available, booking_id, created_at, updated_at`

func (r *availabilityRepository) ListOpenSlots(ctx context.Context, propertyID int64, start, end time.Time) ([]domain.Slot, error) {
	const q = `SELECT ` + slotCols + ` FROM availability_slots
WHERE property_id=$1 AND start_date < $3 AND end_date > $2
  AND is_available AND booking_id IS NULL
ORDER BY start_date`

	return r.querySlots(ctx, q, propertyID, start, end)
}

func (r *availabilityRepository) ListSlots(ctx context.Context, propertyID int64, start, end time.Time) ([]domain.Slot, error) {
	const q = `SELECT ` + slotCols + ` FROM availability_slots
WHERE property_id=$1 AND start_date < $3 AND end_date > $2
ORDER BY start_date`

	return r.querySlots(ctx, q, propertyID, start, end)
}

func (r *availabilityRepository) querySlots(ctx context.Context, q string, propertyID int64, start, end time.Time) ([]domain.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, propertyID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var s domain.Slot
		if err := rows.Scan(
			&s.ID, &s.PropertyID, &s.StartDate, &s.EndDate,
			&s.Price, &s.IsAvailable, &s.BookingID,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *availabilityRepository) UpdateSlotPrices(ctx context.Context, propertyID int64, prices map[int64]float64) error {
	const q = `UPDATE availability_slots SET price=$3, updated_at=now()
WHERE id=$2 AND property_id=$1`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for id, price := range prices {
		if _, err := tx.Exec(ctx, q, propertyID, id, price); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
