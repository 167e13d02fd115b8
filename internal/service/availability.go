package service

import (
	"time"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
)

// firstUncoveredDay walks [start, end) one calendar day at a time and
// returns the first day not inside any slot, or nil when the range is
// fully covered. Interval math alone is not enough here: slots carry
// per-day prices and gaps between slots must surface as the exact
// missing date.
func firstUncoveredDay(slots []domain.Slot, start, end time.Time) *time.Time {
	for day := domain.Day(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		covered := false
		for i := range slots {
			if slots[i].Contains(day) {
				covered = true
				break
			}
		}
		if !covered {
			d := day
			return &d
		}
	}
	return nil
}

// checkCoverage verifies [start, end) is fully covered by the given
// open slots. Start must be before end; callers validate the rest.
func checkCoverage(slots []domain.Slot, start, end time.Time) error {
	if !start.Before(end) {
		return domain.NewValidation("start date must be before end date")
	}
	if len(slots) == 0 {
		return domain.NewConflict("No availability for the selected dates")
	}
	if gap := firstUncoveredDay(slots, start, end); gap != nil {
		return domain.NewConflict("No availability for " + gap.Format("2006-01-02"))
	}
	return nil
}

func slotIDs(slots []domain.Slot) []int64 {
	ids := make([]int64, len(slots))
	for i := range slots {
		ids[i] = slots[i].ID
	}
	return ids
}
