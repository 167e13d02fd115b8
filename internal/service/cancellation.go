package service

import (
	"context"
	"time"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
	"github.com/wanderstay/wanderstay-bookings/pkg/logger"
)

// FallbackFeeRatio applies when the policy itself cannot be evaluated.
// A broken policy must never block a cancellation.
const FallbackFeeRatio = 0.5

// cancellationFee derives the fee kept by the host from the hours
// remaining until check-in. Tier boundaries are strict "<" at every
// window edge.
func cancellationFee(ctx context.Context, b *domain.Booking, policy domain.CancellationPolicy, now time.Time) (fee float64) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Cancellation policy evaluation failed, using fallback fee",
				"booking_id", b.ID, "panic", r)
			fee = b.TotalPrice * FallbackFeeRatio
		}
	}()

	if !policyIsSane(policy) {
		logger.WarnContext(ctx, "Cancellation policy is malformed, using fallback fee",
			"booking_id", b.ID, "property_id", b.PropertyID)
		return b.TotalPrice * FallbackFeeRatio
	}

	h := b.StartDate.Sub(now).Hours()
	switch {
	case h < 0:
		// Already checked in or past start: no refund.
		return b.TotalPrice
	case h < float64(policy.StrictWindowHours):
		return b.TotalPrice * policy.StrictFeeRatio
	case h < float64(policy.CancellationWindowHours):
		return b.TotalPrice * policy.FeeRatio
	default:
		return b.TotalPrice * policy.FlexibleFeeRatio
	}
}

func policyIsSane(p domain.CancellationPolicy) bool {
	if p.StrictWindowHours < 0 || p.CancellationWindowHours < p.StrictWindowHours {
		return false
	}
	for _, ratio := range []float64{p.StrictFeeRatio, p.FeeRatio, p.FlexibleFeeRatio} {
		if ratio < 0 || ratio > 1 {
			return false
		}
	}
	return true
}
