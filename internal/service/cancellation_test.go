package service

import (
	"context"
	"testing"
	"time"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
)

func TestCancellationFee_Tiers(t *testing.T) {
	policy := domain.DefaultCancellationPolicy()
	booking := &domain.Booking{ID: 1, TotalPrice: 330}
	checkin := day(2025, 6, 1)
	booking.StartDate = checkin

	cases := []struct {
		name string
		now  time.Time
		want float64
	}{
		{"10h before start, strict window", checkin.Add(-10 * time.Hour), 330},
		{"23h59m before start, strict window", checkin.Add(-24*time.Hour + time.Minute), 330},
		{"exactly 24h before start, mid window", checkin.Add(-24 * time.Hour), 165},
		{"36h before start, mid window", checkin.Add(-36 * time.Hour), 165},
		{"exactly 48h before start, flexible", checkin.Add(-48 * time.Hour), 0},
		{"a week before start, flexible", checkin.Add(-7 * 24 * time.Hour), 0},
		{"after start, no refund", checkin.Add(2 * time.Hour), 330},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cancellationFee(context.Background(), booking, policy, tc.now)
			if !approx(got, tc.want) {
				t.Errorf("fee = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCancellationFee_CustomPolicy(t *testing.T) {
	policy := domain.CancellationPolicy{
		StrictWindowHours:       48,
		StrictFeeRatio:          0.8,
		CancellationWindowHours: 96,
		FeeRatio:                0.3,
		FlexibleFeeRatio:        0.1,
	}
	booking := &domain.Booking{ID: 2, TotalPrice: 1000, StartDate: day(2025, 8, 1)}

	got := cancellationFee(context.Background(), booking, policy, booking.StartDate.Add(-24*time.Hour))
	if !approx(got, 800) {
		t.Errorf("strict tier fee = %v, want 800", got)
	}
	got = cancellationFee(context.Background(), booking, policy, booking.StartDate.Add(-72*time.Hour))
	if !approx(got, 300) {
		t.Errorf("mid tier fee = %v, want 300", got)
	}
	got = cancellationFee(context.Background(), booking, policy, booking.StartDate.Add(-200*time.Hour))
	if !approx(got, 100) {
		t.Errorf("flexible tier fee = %v, want 100", got)
	}
}

func TestCancellationFee_MalformedPolicyFallsBack(t *testing.T) {
	booking := &domain.Booking{ID: 3, TotalPrice: 200, StartDate: day(2025, 8, 1)}

	malformed := []domain.CancellationPolicy{
		{StrictWindowHours: -1, CancellationWindowHours: 48, StrictFeeRatio: 1, FeeRatio: 0.5},
		{StrictWindowHours: 96, CancellationWindowHours: 48, StrictFeeRatio: 1, FeeRatio: 0.5},
		{StrictWindowHours: 24, CancellationWindowHours: 48, StrictFeeRatio: 1.5, FeeRatio: 0.5},
		{StrictWindowHours: 24, CancellationWindowHours: 48, StrictFeeRatio: 1, FeeRatio: -0.5},
	}
	for i, policy := range malformed {
		got := cancellationFee(context.Background(), booking, policy, booking.StartDate.Add(-100*time.Hour))
		if !approx(got, 100) {
			t.Errorf("case %d: fallback fee = %v, want 100 (50%%)", i, got)
		}
	}
}
