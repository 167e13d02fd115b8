package service

import (
	"strings"
	"testing"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
)

func TestCheckCoverage_FullyCovered(t *testing.T) {
	slots := []domain.Slot{
		slotFor(1, day(2025, 6, 1), day(2025, 6, 3), fptr(100)),
		slotFor(2, day(2025, 6, 3), day(2025, 6, 6), fptr(120)),
	}

	if err := checkCoverage(slots, day(2025, 6, 1), day(2025, 6, 6)); err != nil {
		t.Fatalf("contiguous slots must cover the range: %v", err)
	}

	// A sub-range is covered too
	if err := checkCoverage(slots, day(2025, 6, 2), day(2025, 6, 4)); err != nil {
		t.Fatalf("sub-range must be covered: %v", err)
	}
}

func TestCheckCoverage_NamesTheGap(t *testing.T) {
	slots := []domain.Slot{
		slotFor(1, day(2025, 6, 1), day(2025, 6, 3), fptr(100)),
		// 2025-06-03 missing
		slotFor(2, day(2025, 6, 4), day(2025, 6, 6), fptr(100)),
	}

	err := checkCoverage(slots, day(2025, 6, 1), day(2025, 6, 6))
	if err == nil {
		t.Fatal("expected a conflict for the uncovered day")
	}
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "2025-06-03") {
		t.Errorf("error must name the uncovered day: %v", err)
	}
}

func TestCheckCoverage_NoSlots(t *testing.T) {
	err := checkCoverage(nil, day(2025, 6, 1), day(2025, 6, 3))
	if err == nil || !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for zero slots, got %v", err)
	}
}

func TestCheckCoverage_InvalidRange(t *testing.T) {
	slots := []domain.Slot{slotFor(1, day(2025, 6, 1), day(2025, 6, 10), fptr(100))}

	err := checkCoverage(slots, day(2025, 6, 5), day(2025, 6, 5))
	if err == nil || !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for empty range, got %v", err)
	}
	err = checkCoverage(slots, day(2025, 6, 6), day(2025, 6, 5))
	if err == nil || !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}

func TestFirstUncoveredDay_Boundaries(t *testing.T) {
	slots := []domain.Slot{slotFor(1, day(2025, 6, 1), day(2025, 6, 5), fptr(100))}

	// End day is exclusive: booking up to the slot end is fine
	if gap := firstUncoveredDay(slots, day(2025, 6, 1), day(2025, 6, 5)); gap != nil {
		t.Errorf("range equal to slot must be covered, gap at %v", gap)
	}

	// One day past the slot end is not
	gap := firstUncoveredDay(slots, day(2025, 6, 1), day(2025, 6, 6))
	if gap == nil || !gap.Equal(day(2025, 6, 5)) {
		t.Errorf("expected gap at 2025-06-05, got %v", gap)
	}

	// A missing first day is reported first
	gap = firstUncoveredDay(slots, day(2025, 5, 31), day(2025, 6, 3))
	if gap == nil || !gap.Equal(day(2025, 5, 31)) {
		t.Errorf("expected gap at 2025-05-31, got %v", gap)
	}
}
