package domain

import "time"

// Slot is one priced, bookable interval of a property's calendar.
// Intervals are half-open [StartDate, EndDate) at day granularity and
// never overlap for the same property. BookingID is set iff the slot
// is claimed (IsAvailable false) by a live booking.
type Slot struct {
	ID          int64      `json:"id"`
	PropertyID  int64      `json:"property_id"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Price       *float64   `json:"price,omitempty"`
	IsAvailable bool       `json:"is_available"`
	BookingID   *int64     `json:"booking_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Contains reports whether the day falls inside the slot's interval.
func (s *Slot) Contains(day time.Time) bool {
	return !day.Before(s.StartDate) && day.Before(s.EndDate)
}

// PriceOr returns the slot's nightly price, or fallback when the slot
// carries none.
func (s *Slot) PriceOr(fallback float64) float64 {
	if s.Price != nil {
		return *s.Price
	}
	return fallback
}

// DayPrice pairs one calendar day with the nightly price charged for it.
type DayPrice struct {
	Day   time.Time `json:"day"`
	Price float64   `json:"price"`
}

// Quote is the priced breakdown for a date range.
type Quote struct {
	BasePrice   float64    `json:"base_price"`
	Taxes       float64    `json:"taxes"`
	Fees        float64    `json:"fees"`
	TotalPrice  float64    `json:"total_price"`
	DailyPrices []DayPrice `json:"daily_prices"`
}
