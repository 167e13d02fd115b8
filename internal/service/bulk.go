package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
	"github.com/wanderstay/wanderstay-bookings/pkg/config"
	"github.com/wanderstay/wanderstay-bookings/pkg/logger"
)

// BulkResult reports one request's outcome. Results keep the input
// order regardless of completion order.
type BulkResult struct {
	Success bool                  `json:"success"`
	Booking *domain.Booking       `json:"booking,omitempty"`
	Error   *domain.Error         `json:"error,omitempty"`
	Request *CreateBookingRequest `json:"request"`
}

// BulkProcessor fans CreateBooking out over many requests with bounded
// concurrency. Items are fully isolated: one failure or timeout never
// cancels or rolls back a sibling.
type BulkProcessor struct {
	bookings BookingService
	cfg      config.BulkConfig
}

func NewBulkProcessor(bookings BookingService, cfg config.BulkConfig) *BulkProcessor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return &BulkProcessor{bookings: bookings, cfg: cfg}
}

func (p *BulkProcessor) ProcessMany(ctx context.Context, tenantID int64, requests []CreateBookingRequest) []BulkResult {
	results := make([]BulkResult, len(requests))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	for i := range requests {
		i := i
		req := requests[i]
		g.Go(func() error {
			itemCtx := ctx
			if p.cfg.PerItemTimeout > 0 {
				var cancel context.CancelFunc
				itemCtx, cancel = context.WithTimeout(ctx, p.cfg.PerItemTimeout)
				defer cancel()
			}

			booking, err := p.bookings.CreateBooking(itemCtx, tenantID, &req, "")
			if err != nil {
				if itemCtx.Err() == context.DeadlineExceeded {
					err = domain.NewConflict("booking request timed out")
				}
				results[i] = BulkResult{Success: false, Error: domain.AsError(err), Request: &requests[i]}
				logger.WarnContext(ctx, "Bulk booking item failed",
					"index", i, "property_id", req.PropertyID, "error", err)
				return nil
			}

			results[i] = BulkResult{Success: true, Booking: booking, Request: &requests[i]}
			return nil
		})
	}

	// Workers never return errors; Wait only fences completion.
	_ = g.Wait()
	return results
}
