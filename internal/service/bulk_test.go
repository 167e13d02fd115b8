package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
	"github.com/wanderstay/wanderstay-bookings/pkg/config"
)

// stubBookingService lets bulk tests control each CreateBooking outcome
// without standing up the full orchestrator.
type stubBookingService struct {
	BookingService
	create func(ctx context.Context, tenantID int64, req *CreateBookingRequest, key string) (*domain.Booking, error)
}

func (s *stubBookingService) CreateBooking(ctx context.Context, tenantID int64, req *CreateBookingRequest, key string) (*domain.Booking, error) {
	return s.create(ctx, tenantID, req, key)
}

func TestProcessMany_IsolatesFailures(t *testing.T) {
	env := newTestEnv()
	env.seedProperty(1, domain.PropertyApproved)
	env.seedProperty(2, domain.PropertyApproved)
	env.seedProperty(3, domain.PropertyPending)
	env.seedProperty(4, domain.PropertyApproved)
	env.seedProperty(5, domain.PropertyApproved)
	for id := int64(1); id <= 5; id++ {
		env.seedSlots(id, day(2025, 6, 1), 5, 100)
	}

	requests := make([]CreateBookingRequest, 5)
	for i := range requests {
		requests[i] = *createReq(int64(i+1), day(2025, 6, 1), day(2025, 6, 4), 2)
	}

	proc := NewBulkProcessor(env.svc, config.BulkConfig{Concurrency: 3})
	results := proc.ProcessMany(context.Background(), 7, requests)

	if len(results) != 5 {
		t.Fatalf("results = %d, want 5", len(results))
	}
	for i, res := range results {
		if res.Request == nil || res.Request.PropertyID != int64(i+1) {
			t.Errorf("result %d is out of order: %+v", i, res.Request)
		}
		if i == 2 {
			if res.Success || res.Error == nil || res.Error.Kind != domain.KindBooking {
				t.Errorf("result %d: unapproved property must fail with a booking error, got %+v", i, res)
			}
			continue
		}
		if !res.Success || res.Booking == nil {
			t.Errorf("result %d must succeed, got %+v", i, res.Error)
		}
	}

	if len(env.store.bookings) != 4 {
		t.Errorf("bookings persisted = %d, want 4", len(env.store.bookings))
	}
}

func TestProcessMany_BoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0

	stub := &stubBookingService{
		create: func(ctx context.Context, tenantID int64, req *CreateBookingRequest, key string) (*domain.Booking, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return &domain.Booking{ID: 1}, nil
		},
	}

	requests := make([]CreateBookingRequest, 10)
	proc := NewBulkProcessor(stub, config.BulkConfig{Concurrency: 2})
	results := proc.ProcessMany(context.Background(), 7, requests)

	if len(results) != 10 {
		t.Fatalf("results = %d, want 10", len(results))
	}
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestProcessMany_PerItemTimeout(t *testing.T) {
	stub := &stubBookingService{
		create: func(ctx context.Context, tenantID int64, req *CreateBookingRequest, key string) (*domain.Booking, error) {
			if req.PropertyID == 2 {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return &domain.Booking{ID: req.PropertyID}, nil
		},
	}

	requests := []CreateBookingRequest{
		{PropertyID: 1}, {PropertyID: 2}, {PropertyID: 3},
	}
	proc := NewBulkProcessor(stub, config.BulkConfig{Concurrency: 3, PerItemTimeout: 30 * time.Millisecond})
	results := proc.ProcessMany(context.Background(), 7, requests)

	if !results[0].Success || !results[2].Success {
		t.Errorf("fast items must succeed: %+v, %+v", results[0], results[2])
	}
	if results[1].Success || results[1].Error == nil {
		t.Fatalf("slow item must fail, got %+v", results[1])
	}
	if results[1].Error.Kind != domain.KindConflict || results[1].Error.Message != "booking request timed out" {
		t.Errorf("timeout must surface as a conflict, got %+v", results[1].Error)
	}
}

func TestProcessMany_DefaultConcurrency(t *testing.T) {
	stub := &stubBookingService{
		create: func(ctx context.Context, tenantID int64, req *CreateBookingRequest, key string) (*domain.Booking, error) {
			return &domain.Booking{ID: 1}, nil
		},
	}

	proc := NewBulkProcessor(stub, config.BulkConfig{})
	results := proc.ProcessMany(context.Background(), 7, make([]CreateBookingRequest, 3))
	for i, res := range results {
		if !res.Success {
			t.Errorf("result %d failed: %+v", i, res.Error)
		}
	}
}
