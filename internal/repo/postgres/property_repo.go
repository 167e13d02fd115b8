package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
)

// PropertyRepository reads the listing subsystem's property records.
// This core never writes them.
type PropertyRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Property, error)
}

type propertyRepository struct {
	pool *pgxpool.Pool
}

func NewPropertyRepository(pool *pgxpool.Pool) PropertyRepository {
	return &propertyRepository{pool: pool}
}

const propertyCols = `id, host_id, title, status,
max_guests, min_stay, max_stay,
base_price, min_price, currency,
strict_window_hours, strict_fee_ratio,
cancellation_window_hours, fee_ratio, flexible_fee_ratio`

func (r *propertyRepository) GetByID(ctx context.Context, id int64) (*domain.Property, error) {
	const q = `SELECT ` + propertyCols + ` FROM properties WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Property
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.HostID, &p.Title, &p.Status,
		&p.MaxGuests, &p.MinStay, &p.MaxStay,
		&p.BasePrice, &p.MinPrice, &p.Currency,
		&p.CancellationPolicy.StrictWindowHours, &p.CancellationPolicy.StrictFeeRatio,
		&p.CancellationPolicy.CancellationWindowHours, &p.CancellationPolicy.FeeRatio,
		&p.CancellationPolicy.FlexibleFeeRatio,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	promos, err := r.listPromotions(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Promotions = promos
	return &p, nil
}

func (r *propertyRepository) listPromotions(ctx context.Context, propertyID int64) ([]domain.Promotion, error) {
	const q = `SELECT id, property_id, discount_ratio, active, start_date, end_date
FROM promotions WHERE property_id=$1 ORDER BY start_date`

	rows, err := r.pool.Query(ctx, q, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promos []domain.Promotion
	for rows.Next() {
		var p domain.Promotion
		if err := rows.Scan(&p.ID, &p.PropertyID, &p.DiscountRatio, &p.Active, &p.StartDate, &p.EndDate); err != nil {
			return nil, err
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}
