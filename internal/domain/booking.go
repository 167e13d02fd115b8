package domain

import "time"

type BookingStatus string

const (
	BookingPending       BookingStatus = "PENDING"
	BookingConfirmed     BookingStatus = "CONFIRMED"
	BookingPaid          BookingStatus = "PAID"
	BookingActive        BookingStatus = "ACTIVE"
	BookingCompleted     BookingStatus = "COMPLETED"
	BookingCancelled     BookingStatus = "CANCELLED"
	BookingRefundPending BookingStatus = "REFUND_PENDING"
	BookingRefunded      BookingStatus = "REFUNDED"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingPaid, BookingActive,
		BookingCompleted, BookingCancelled, BookingRefundPending, BookingRefunded:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// bookingTransitions is the authoritative lifecycle table. COMPLETED
// and REFUNDED are terminal; there are no self-loops.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:       {BookingConfirmed, BookingCancelled},
	BookingConfirmed:     {BookingPaid, BookingCancelled},
	BookingPaid:          {BookingActive, BookingCancelled},
	BookingActive:        {BookingCompleted},
	BookingCancelled:     {BookingRefundPending},
	BookingRefundPending: {BookingRefunded},
	BookingCompleted:     {},
	BookingRefunded:      {},
}

// ValidateTransition must be called before any status mutation.
func ValidateTransition(current, target BookingStatus) error {
	allowed, ok := bookingTransitions[current]
	if !ok {
		return NewBooking("unknown booking status: " + string(current))
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return NewBooking("invalid status transition: " + string(current) + " -> " + string(target))
}

func (s BookingStatus) IsTerminal() bool {
	allowed, ok := bookingTransitions[s]
	return ok && len(allowed) == 0
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

type Payment struct {
	ID           int64         `json:"id"`
	BookingID    int64         `json:"booking_id"`
	Amount       float64       `json:"amount"`
	Currency     string        `json:"currency"`
	Method       string        `json:"method"`
	GatewayRef   string        `json:"gateway_ref,omitempty"`
	Status       PaymentStatus `json:"status"`
	RefundAmount float64       `json:"refund_amount"`
	RefundedAt   *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type Booking struct {
	ID                 int64         `json:"id"`
	PropertyID         int64         `json:"property_id"`
	TenantID           int64         `json:"tenant_id"`
	StartDate          time.Time     `json:"start_date"`
	EndDate            time.Time     `json:"end_date"`
	Adults             int           `json:"adults"`
	Children           int           `json:"children"`
	Infants            int           `json:"infants"`
	Status             BookingStatus `json:"status"`
	BasePrice          float64       `json:"base_price"`
	Taxes              float64       `json:"taxes"`
	Fees               float64       `json:"fees"`
	TotalPrice         float64       `json:"total_price"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	CancellationDate   *time.Time    `json:"cancellation_date,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`

	Payment *Payment `json:"payment,omitempty"`
}

// Guests counts everyone occupying the property. Infants count toward
// occupancy for the max-guests check.
func (b *Booking) Guests() int {
	return b.Adults + b.Children + b.Infants
}

// Nights is the stay length of the half-open [StartDate, EndDate) range.
func (b *Booking) Nights() int {
	return Nights(b.StartDate, b.EndDate)
}

// IsOwner checks if the given tenant owns this booking
func (b *Booking) IsOwner(tenantID int64) bool {
	return b.TenantID == tenantID
}

// Overlaps reports whether the booking's range intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartDate.Before(end) && start.Before(b.EndDate)
}

// Nights returns the number of calendar nights in [start, end).
func Nights(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// Day truncates t to midnight UTC; all calendar math runs on day
// boundaries to keep the half-open interval convention exact.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
