package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
)

// ErrSlotsTaken is returned when a claim touches fewer slots than the
// coverage check promised: another writer got there first (usually a
// lock that expired mid-flight).
var ErrSlotsTaken = domain.NewConflict("selected dates are no longer available")

type CancelParams struct {
	BookingID     int64
	Reason        string
	CancelledAt   time.Time
	PaymentStatus domain.PaymentStatus
	RefundAmount  float64
}

type RescheduleParams struct {
	BookingID    int64
	StartDate    time.Time
	EndDate      time.Time
	Adults       int
	Children     int
	Infants      int
	Quote        domain.Quote
	ClaimSlotIDs []int64
}

type BookingRepository interface {
	// CreateWithClaim inserts the booking and its payment and claims
	// the given slots, all in one transaction. Every step commits or
	// none does.
	CreateWithClaim(ctx context.Context, b *domain.Booking, p *domain.Payment, slotIDs []int64) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByTenant(ctx context.Context, tenantID int64, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
	// CountOverlapping counts non-cancelled bookings of other ids on
	// the property intersecting [start, end).
	CountOverlapping(ctx context.Context, propertyID, excludeBookingID int64, start, end time.Time) (int, error)
	// CancelWithRelease flips the booking to CANCELLED, records the
	// refund on the payment, and frees the claimed slots atomically.
	CancelWithRelease(ctx context.Context, params CancelParams) (*domain.Booking, error)
	// RescheduleWithReclaim moves the booking to a new range: frees the
	// old slots, claims the new ones, rewrites dates/guests/price.
	RescheduleWithReclaim(ctx context.Context, params RescheduleParams) (*domain.Booking, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, property_id, tenant_id, start_date, end_date,
adults, children, infants, status,
base_price, taxes, fees, total_price,
cancellation_reason, cancellation_date, created_at, updated_at`

const paymentCols = `id, booking_id, amount, currency, method, gateway_ref,
status, refund_amount, refunded_at, created_at, updated_at`

func scanBooking(row pgx.Row, b *domain.Booking) error {
	return row.Scan(
		&b.ID, &b.PropertyID, &b.TenantID, &b.StartDate, &b.EndDate,
		&b.Adults, &b.Children, &b.Infants, &b.Status,
		&b.BasePrice, &b.Taxes, &b.Fees, &b.TotalPrice,
		&b.CancellationReason, &b.CancellationDate, &b.CreatedAt, &b.UpdatedAt,
	)
}

func (r *bookingRepository) CreateWithClaim(ctx context.Context, b *domain.Booking, p *domain.Payment, slotIDs []int64) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const insertBooking = `INSERT INTO bookings (
		property_id, tenant_id, start_date, end_date,
		adults, children, infants, status,
		base_price, taxes, fees, total_price, cancellation_reason
	) VALUES ($1,$2,$3,$4,$5,$6,$7,'PENDING',$8,$9,$10,$11,'')
	RETURNING ` + bookingCols

	var created domain.Booking
	err = scanBooking(tx.QueryRow(ctx, insertBooking,
		b.PropertyID, b.TenantID, b.StartDate, b.EndDate,
		b.Adults, b.Children, b.Infants,
		b.BasePrice, b.Taxes, b.Fees, b.TotalPrice,
	), &created)
	if err != nil {
		return nil, err
	}

	const claim = `UPDATE availability_slots
SET is_available=false, booking_id=$1, updated_at=now()
WHERE id = ANY($2) AND is_available AND booking_id IS NULL`

	tag, err := tx.Exec(ctx, claim, created.ID, slotIDs)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() != int64(len(slotIDs)) {
		// Rollback via the deferred call; nothing was committed.
		return nil, ErrSlotsTaken
	}

	const insertPayment = `INSERT INTO payments (
		booking_id, amount, currency, method, gateway_ref, status, refund_amount
	) VALUES ($1,$2,$3,$4,$5,'PENDING',0)
	RETURNING ` + paymentCols

	var pay domain.Payment
	err = tx.QueryRow(ctx, insertPayment,
		created.ID, p.Amount, p.Currency, p.Method, p.GatewayRef,
	).Scan(
		&pay.ID, &pay.BookingID, &pay.Amount, &pay.Currency, &pay.Method, &pay.GatewayRef,
		&pay.Status, &pay.RefundAmount, &pay.RefundedAt, &pay.CreatedAt, &pay.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	created.Payment = &pay
	return &created, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := scanBooking(r.pool.QueryRow(ctx, q, id), &b)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	const pq = `SELECT ` + paymentCols + ` FROM payments WHERE booking_id=$1`
	var p domain.Payment
	err = r.pool.QueryRow(ctx, pq, id).Scan(
		&p.ID, &p.BookingID, &p.Amount, &p.Currency, &p.Method, &p.GatewayRef,
		&p.Status, &p.RefundAmount, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return &b, nil
	}
	if err != nil {
		return nil, err
	}
	b.Payment = &p
	return &b, nil
}

func (r *bookingRepository) ListByTenant(ctx context.Context, tenantID int64, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + bookingCols + ` FROM bookings WHERE tenant_id=$1`
	args := []any{tenantID}
	if status != nil {
		q += ` AND status=$2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, *status, limit, offset)
	} else {
		q += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) CountOverlapping(ctx context.Context, propertyID, excludeBookingID int64, start, end time.Time) (int, error) {
	const q = `SELECT count(*) FROM bookings
WHERE property_id=$1 AND id <> $2 AND status <> 'CANCELLED'
  AND start_date < $4 AND end_date > $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, q, propertyID, excludeBookingID, start, end).Scan(&n)
	return n, err
}

func (r *bookingRepository) CancelWithRelease(ctx context.Context, params CancelParams) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const updateBooking = `UPDATE bookings
SET status='CANCELLED', cancellation_reason=$2, cancellation_date=$3, updated_at=now()
WHERE id=$1 AND status <> 'CANCELLED'
RETURNING ` + bookingCols

	var b domain.Booking
	err = scanBooking(tx.QueryRow(ctx, updateBooking,
		params.BookingID, params.Reason, params.CancelledAt,
	), &b)
	if err == pgx.ErrNoRows {
		// Not found, or a racing cancel already settled it. Report the
		// current state untouched; the rollback discards nothing.
		return r.GetByID(ctx, params.BookingID)
	}
	if err != nil {
		return nil, err
	}

	const updatePayment = `UPDATE payments
SET status=$2, refund_amount=$3, refunded_at=$4, updated_at=now()
WHERE booking_id=$1
RETURNING ` + paymentCols

	var p domain.Payment
	err = tx.QueryRow(ctx, updatePayment,
		params.BookingID, params.PaymentStatus, params.RefundAmount, params.CancelledAt,
	).Scan(
		&p.ID, &p.BookingID, &p.Amount, &p.Currency, &p.Method, &p.GatewayRef,
		&p.Status, &p.RefundAmount, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil && err != pgx.ErrNoRows {
		return nil, err
	}
	if err == nil {
		b.Payment = &p
	}

	const release = `UPDATE availability_slots
SET is_available=true, booking_id=NULL, updated_at=now()
WHERE booking_id=$1`

	if _, err := tx.Exec(ctx, release, params.BookingID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) RescheduleWithReclaim(ctx context.Context, params RescheduleParams) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const release = `UPDATE availability_slots
SET is_available=true, booking_id=NULL, updated_at=now()
WHERE booking_id=$1`

	if _, err := tx.Exec(ctx, release, params.BookingID); err != nil {
		return nil, err
	}

	const claim = `UPDATE availability_slots
SET is_available=false, booking_id=$1, updated_at=now()
WHERE id = ANY($2) AND is_available AND booking_id IS NULL`

	tag, err := tx.Exec(ctx, claim, params.BookingID, params.ClaimSlotIDs)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() != int64(len(params.ClaimSlotIDs)) {
		return nil, ErrSlotsTaken
	}

	const updateBooking = `UPDATE bookings
SET start_date=$2, end_date=$3, adults=$4, children=$5, infants=$6,
    base_price=$7, taxes=$8, fees=$9, total_price=$10, updated_at=now()
WHERE id=$1
RETURNING ` + bookingCols

	var b domain.Booking
	err = scanBooking(tx.QueryRow(ctx, updateBooking,
		params.BookingID, params.StartDate, params.EndDate,
		params.Adults, params.Children, params.Infants,
		params.Quote.BasePrice, params.Quote.Taxes, params.Quote.Fees, params.Quote.TotalPrice,
	), &b)
	if err != nil {
		return nil, err
	}

	const updatePayment = `UPDATE payments SET amount=$2, updated_at=now() WHERE booking_id=$1`
	if _, err := tx.Exec(ctx, updatePayment, params.BookingID, params.Quote.TotalPrice); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}
