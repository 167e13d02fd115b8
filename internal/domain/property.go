package domain

import "time"

type PropertyStatus string

const (
	PropertyPending  PropertyStatus = "PENDING"
	PropertyApproved PropertyStatus = "APPROVED"
	PropertyRejected PropertyStatus = "REJECTED"
	PropertyDelisted PropertyStatus = "DELISTED"
)

// CancellationPolicy is the per-property refund schedule. Windows are
// hours before check-in; ratios apply to the booking's total price.
type CancellationPolicy struct {
	StrictWindowHours       int     `json:"strict_window_hours"`
	StrictFeeRatio          float64 `json:"strict_fee_ratio"`
	CancellationWindowHours int     `json:"cancellation_window_hours"`
	FeeRatio                float64 `json:"fee_ratio"`
	FlexibleFeeRatio        float64 `json:"flexible_fee_ratio"`
}

func DefaultCancellationPolicy() CancellationPolicy {
	return CancellationPolicy{
		StrictWindowHours:       24,
		StrictFeeRatio:          1.0,
		CancellationWindowHours: 48,
		FeeRatio:                0.5,
		FlexibleFeeRatio:        0,
	}
}

type Promotion struct {
	ID            int64     `json:"id"`
	PropertyID    int64     `json:"property_id"`
	DiscountRatio float64   `json:"discount_ratio"`
	Active        bool      `json:"active"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
}

// ValidAt reports whether the promotion applies at the given instant.
func (p *Promotion) ValidAt(now time.Time) bool {
	return p.Active && !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// Property is owned by the listings subsystem; this core reads it only.
type Property struct {
	ID                 int64              `json:"id"`
	HostID             int64              `json:"host_id"`
	Title              string             `json:"title"`
	Status             PropertyStatus     `json:"status"`
	MaxGuests          int                `json:"max_guests"`
	MinStay            int                `json:"min_stay"`
	MaxStay            int                `json:"max_stay"`
	BasePrice          float64            `json:"base_price"`
	MinPrice           float64            `json:"min_price"`
	Currency           string             `json:"currency"`
	CancellationPolicy CancellationPolicy `json:"cancellation_policy"`
	Promotions         []Promotion        `json:"promotions,omitempty"`
}

func (p *Property) IsBookable() bool {
	return p.Status == PropertyApproved
}

// ActivePromotion returns the first promotion valid at now, or nil.
func (p *Property) ActivePromotion(now time.Time) *Promotion {
	for i := range p.Promotions {
		if p.Promotions[i].ValidAt(now) {
			return &p.Promotions[i]
		}
	}
	return nil
}

// Tenant is the booking-facing projection of the identity subsystem's
// principal record.
type Tenant struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
