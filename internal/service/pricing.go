package service

import (
	"time"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
)

// Pricing rules
const (
	TaxRate            = 0.10
	ExtraGuestFee      = 20.0
	ExtraGuestCutoff   = 2
	HighSeasonFactor   = 1.5
	MidSeasonFactor    = 1.2
	LowSeasonFactor    = 0.8
	WeekendFactor      = 1.2
	MinPriceFloorRatio = 0.5
)

// priceRange totals a stay over [start, end): each night is charged at
// its slot's price, falling back to the property's base price when the
// slot carries none. Pure function of its inputs.
func priceRange(property *domain.Property, slots []domain.Slot, start, end time.Time, guestCount int) domain.Quote {
	var q domain.Quote
	for day := domain.Day(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		price := property.BasePrice
		for i := range slots {
			if slots[i].Contains(day) {
				price = slots[i].PriceOr(property.BasePrice)
				break
			}
		}
		q.BasePrice += price
		q.DailyPrices = append(q.DailyPrices, domain.DayPrice{Day: day, Price: price})
	}

	q.Taxes = q.BasePrice * TaxRate
	if guestCount > ExtraGuestCutoff {
		q.Fees = ExtraGuestFee
	}
	q.TotalPrice = q.BasePrice + q.Taxes + q.Fees
	return q
}

// seasonFactor prices summer peak and shoulder months above the rest
// of the year.
func seasonFactor(m time.Month) float64 {
	switch m {
	case time.June, time.July, time.August:
		return HighSeasonFactor
	case time.April, time.May, time.September, time.October:
		return MidSeasonFactor
	default:
		return LowSeasonFactor
	}
}

func demandFactor(d time.Weekday) float64 {
	if d == time.Friday || d == time.Saturday {
		return WeekendFactor
	}
	return 1.0
}

func lengthOfStayDiscount(nights int) float64 {
	switch {
	case nights >= 30:
		return 0.30
	case nights >= 14:
		return 0.20
	case nights >= 7:
		return 0.10
	default:
		return 0
	}
}

// quoteSlotPrice derives the dynamic nightly price used when
// (re)pricing a slot: seasonal and weekend multipliers, then the
// length-of-stay discount, then any currently valid promotion, floored
// at max(minPrice, half the base). It never prices an existing
// booking; that total is fixed at creation.
func quoteSlotPrice(property *domain.Property, basePrice float64, day time.Time, nights int, now time.Time) float64 {
	price := basePrice * seasonFactor(day.Month()) * demandFactor(day.Weekday())
	price *= 1 - lengthOfStayDiscount(nights)

	if promo := property.ActivePromotion(now); promo != nil {
		price *= 1 - promo.DiscountRatio
	}

	floor := property.MinPrice
	if half := basePrice * MinPriceFloorRatio; half > floor {
		floor = half
	}
	if price < floor {
		price = floor
	}
	return price
}
