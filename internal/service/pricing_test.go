package service

import (
	"math"
	"testing"
	"time"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fptr(v float64) *float64 { return &v }

func slotFor(id int64, start, end time.Time, price *float64) domain.Slot {
	return domain.Slot{
		ID:          id,
		PropertyID:  1,
		StartDate:   start,
		EndDate:     end,
		Price:       price,
		IsAvailable: true,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPriceRange_ThreeNightStay(t *testing.T) {
	// 100/night for 5 days starting 2025-06-01, booking 06-01 -> 06-04
	property := &domain.Property{ID: 1, BasePrice: 100, MaxGuests: 4}
	slots := []domain.Slot{
		slotFor(1, day(2025, 6, 1), day(2025, 6, 6), fptr(100)),
	}

	q := priceRange(property, slots, day(2025, 6, 1), day(2025, 6, 4), 2)

	if !approx(q.BasePrice, 300) {
		t.Errorf("BasePrice = %v, want 300", q.BasePrice)
	}
	if !approx(q.Taxes, 30) {
		t.Errorf("Taxes = %v, want 30", q.Taxes)
	}
	if !approx(q.Fees, 0) {
		t.Errorf("Fees = %v, want 0 for 2 guests", q.Fees)
	}
	if !approx(q.TotalPrice, 330) {
		t.Errorf("TotalPrice = %v, want 330", q.TotalPrice)
	}
	if len(q.DailyPrices) != 3 {
		t.Fatalf("DailyPrices length = %d, want 3", len(q.DailyPrices))
	}
	if !q.DailyPrices[0].Day.Equal(day(2025, 6, 1)) {
		t.Errorf("first daily price day = %v", q.DailyPrices[0].Day)
	}
}

func TestPriceRange_ExtraGuestFee(t *testing.T) {
	property := &domain.Property{ID: 1, BasePrice: 100}
	slots := []domain.Slot{slotFor(1, day(2025, 6, 1), day(2025, 6, 10), fptr(100))}

	q := priceRange(property, slots, day(2025, 6, 1), day(2025, 6, 3), 3)
	if !approx(q.Fees, ExtraGuestFee) {
		t.Errorf("Fees = %v, want %v for 3 guests", q.Fees, ExtraGuestFee)
	}
	if !approx(q.TotalPrice, 200+20+20) {
		t.Errorf("TotalPrice = %v, want 240", q.TotalPrice)
	}
}

func TestPriceRange_SlotPriceFallback(t *testing.T) {
	property := &domain.Property{ID: 1, BasePrice: 80}
	slots := []domain.Slot{
		slotFor(1, day(2025, 6, 1), day(2025, 6, 2), fptr(150)),
		slotFor(2, day(2025, 6, 2), day(2025, 6, 3), nil), // falls back to base
	}

	q := priceRange(property, slots, day(2025, 6, 1), day(2025, 6, 3), 1)
	if !approx(q.BasePrice, 230) {
		t.Errorf("BasePrice = %v, want 230 (150 + 80 fallback)", q.BasePrice)
	}
}

func TestPriceRange_IsPure(t *testing.T) {
	property := &domain.Property{ID: 1, BasePrice: 100}
	slots := []domain.Slot{slotFor(1, day(2025, 6, 1), day(2025, 6, 8), fptr(110))}

	a := priceRange(property, slots, day(2025, 6, 1), day(2025, 6, 5), 4)
	b := priceRange(property, slots, day(2025, 6, 1), day(2025, 6, 5), 4)
	if !approx(a.TotalPrice, b.TotalPrice) {
		t.Errorf("identical inputs must price identically: %v vs %v", a.TotalPrice, b.TotalPrice)
	}
}

func TestSeasonFactor(t *testing.T) {
	cases := []struct {
		month time.Month
		want  float64
	}{
		{time.January, LowSeasonFactor},
		{time.March, LowSeasonFactor},
		{time.April, MidSeasonFactor},
		{time.May, MidSeasonFactor},
		{time.June, HighSeasonFactor},
		{time.July, HighSeasonFactor},
		{time.August, HighSeasonFactor},
		{time.September, MidSeasonFactor},
		{time.October, MidSeasonFactor},
		{time.November, LowSeasonFactor},
		{time.December, LowSeasonFactor},
	}
	for _, tc := range cases {
		if got := seasonFactor(tc.month); !approx(got, tc.want) {
			t.Errorf("seasonFactor(%v) = %v, want %v", tc.month, got, tc.want)
		}
	}
}

func TestLengthOfStayDiscount(t *testing.T) {
	cases := []struct {
		nights int
		want   float64
	}{
		{1, 0}, {6, 0}, {7, 0.10}, {13, 0.10}, {14, 0.20}, {29, 0.20}, {30, 0.30}, {90, 0.30},
	}
	for _, tc := range cases {
		if got := lengthOfStayDiscount(tc.nights); !approx(got, tc.want) {
			t.Errorf("lengthOfStayDiscount(%d) = %v, want %v", tc.nights, got, tc.want)
		}
	}
}

func TestQuoteSlotPrice_SeasonAndWeekend(t *testing.T) {
	property := &domain.Property{ID: 1, BasePrice: 100, MinPrice: 10}

	// 2025-07-11 is a Friday in high season: 100 * 1.5 * 1.2
	got := quoteSlotPrice(property, 100, day(2025, 7, 11), 2, day(2025, 7, 1))
	if !approx(got, 180) {
		t.Errorf("summer Friday = %v, want 180", got)
	}

	// 2025-01-13 is a Monday in low season: 100 * 0.8, floored at 50
	got = quoteSlotPrice(property, 100, day(2025, 1, 13), 2, day(2025, 1, 1))
	if !approx(got, 80) {
		t.Errorf("winter Monday = %v, want 80", got)
	}
}

func TestQuoteSlotPrice_LongStayDiscount(t *testing.T) {
	property := &domain.Property{ID: 1, BasePrice: 100, MinPrice: 10}

	// Monday low season, 14 nights: 100 * 0.8 * (1 - 0.2)
	got := quoteSlotPrice(property, 100, day(2025, 1, 13), 14, day(2025, 1, 1))
	if !approx(got, 64) {
		t.Errorf("14-night winter Monday = %v, want 64", got)
	}
}

func TestQuoteSlotPrice_Promotion(t *testing.T) {
	property := &domain.Property{
		ID: 1, BasePrice: 100, MinPrice: 10,
		Promotions: []domain.Promotion{
			{DiscountRatio: 0.25, Active: true, StartDate: day(2025, 1, 1), EndDate: day(2025, 12, 31)},
		},
	}

	// Winter Monday with 25% promo: 100 * 0.8 * 0.75 = 60
	got := quoteSlotPrice(property, 100, day(2025, 1, 13), 2, day(2025, 6, 1))
	if !approx(got, 60) {
		t.Errorf("promo price = %v, want 60", got)
	}

	// Inactive promo must not apply
	property.Promotions[0].Active = false
	got = quoteSlotPrice(property, 100, day(2025, 1, 13), 2, day(2025, 6, 1))
	if !approx(got, 80) {
		t.Errorf("inactive promo price = %v, want 80", got)
	}

	// Expired promo must not apply
	property.Promotions[0].Active = true
	got = quoteSlotPrice(property, 100, day(2025, 1, 13), 2, day(2026, 6, 1))
	if !approx(got, 80) {
		t.Errorf("expired promo price = %v, want 80", got)
	}
}

func TestQuoteSlotPrice_Floor(t *testing.T) {
	property := &domain.Property{
		ID: 1, BasePrice: 100, MinPrice: 70,
		Promotions: []domain.Promotion{
			{DiscountRatio: 0.9, Active: true, StartDate: day(2025, 1, 1), EndDate: day(2025, 12, 31)},
		},
	}

	// Deep promo would push winter Monday to 8; floor is max(70, 50) = 70
	got := quoteSlotPrice(property, 100, day(2025, 1, 13), 2, day(2025, 6, 1))
	if !approx(got, 70) {
		t.Errorf("floored price = %v, want 70", got)
	}

	// With a lower min price, the half-base floor wins: max(10, 50) = 50
	property.MinPrice = 10
	got = quoteSlotPrice(property, 100, day(2025, 1, 13), 2, day(2025, 6, 1))
	if !approx(got, 50) {
		t.Errorf("half-base floored price = %v, want 50", got)
	}
}
