package service

import (
	"context"
	"time"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
	"github.com/wanderstay/wanderstay-bookings/internal/platform/lock"
	"github.com/wanderstay/wanderstay-bookings/internal/platform/payments"
	"github.com/wanderstay/wanderstay-bookings/internal/repo/postgres"
	"github.com/wanderstay/wanderstay-bookings/pkg/events"
	"github.com/wanderstay/wanderstay-bookings/pkg/logger"
)

// LockManager serializes writers per property. The concrete
// implementation lives in platform/lock; tests swap in an in-memory one.
type LockManager interface {
	Acquire(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key, token string)
}

type CreateBookingRequest struct {
	PropertyID    int64     `json:"property_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Adults        int       `json:"adults"`
	Children      int       `json:"children"`
	Infants       int       `json:"infants"`
	PaymentMethod string    `json:"payment_method"`
}

type UpdateBookingRequest struct {
	PropertyID *int64     `json:"property_id,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Adults     *int       `json:"adults,omitempty"`
	Children   *int       `json:"children,omitempty"`
	Infants    *int       `json:"infants,omitempty"`
}

// AvailabilityResult is the probe-friendly coverage answer: a gap is
// data, not an error.
type AvailabilityResult struct {
	Available     bool              `json:"available"`
	FirstConflict *time.Time        `json:"first_conflict,omitempty"`
	Nights        int               `json:"nights"`
	DailyPrices   []domain.DayPrice `json:"daily_prices,omitempty"`
}

type Invoice struct {
	BookingID  int64     `json:"booking_id"`
	TenantName string    `json:"tenant_name"`
	Property   string    `json:"property"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Nights     int       `json:"nights"`
	Subtotal   float64   `json:"subtotal"`
	Tax        float64   `json:"tax"`
	Fees       float64   `json:"fees"`
	Total      float64   `json:"total"`
	AmountPaid float64   `json:"amount_paid"`
	BalanceDue float64   `json:"balance_due"`
	Currency   string    `json:"currency"`
	IssuedAt   time.Time `json:"issued_at"`
}

type BookingService interface {
	CreateBooking(ctx context.Context, tenantID int64, req *CreateBookingRequest, idempotencyKey string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID, tenantID int64, reason string) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, bookingID, tenantID int64, patch UpdateBookingRequest) (*domain.Booking, error)
	CheckAvailability(ctx context.Context, propertyID int64, start, end time.Time) (*AvailabilityResult, error)
	GenerateInvoice(ctx context.Context, bookingID, tenantID int64) (*Invoice, error)
	GetBooking(ctx context.Context, bookingID, tenantID int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, tenantID int64, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
	RepriceSlots(ctx context.Context, hostID, propertyID int64, start, end time.Time) (int, error)
}

type bookingService struct {
	propertyRepo     postgres.PropertyRepository
	tenantRepo       postgres.TenantRepository
	availabilityRepo postgres.AvailabilityRepository
	bookingRepo      postgres.BookingRepository
	idempotencyRepo  postgres.IdempotencyRepository
	locks            LockManager
	eventBus         events.Publisher
	refunder         payments.Refunder
}

func NewBookingService(
	propertyRepo postgres.PropertyRepository,
	tenantRepo postgres.TenantRepository,
	availabilityRepo postgres.AvailabilityRepository,
	bookingRepo postgres.BookingRepository,
	idempotencyRepo postgres.IdempotencyRepository,
	locks LockManager,
	eventBus events.Publisher,
	refunder payments.Refunder,
) BookingService {
	return &bookingService{
		propertyRepo:     propertyRepo,
		tenantRepo:       tenantRepo,
		availabilityRepo: availabilityRepo,
		bookingRepo:      bookingRepo,
		idempotencyRepo:  idempotencyRepo,
		locks:            locks,
		eventBus:         eventBus,
		refunder:         refunder,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, tenantID int64, req *CreateBookingRequest, idempotencyKey string) (*domain.Booking, error) {
	if err := validateCreateRequest(tenantID, req); err != nil {
		return nil, err
	}

	// Replay check before any work
	if idempotencyKey != "" {
		if existingID, err := s.idempotencyRepo.CheckOrCreate(ctx, idempotencyKey, 0); err != nil {
			return nil, domain.AsError(err)
		} else if existingID > 0 {
			existing, err := s.bookingRepo.GetByID(ctx, existingID)
			if err != nil {
				return nil, domain.AsError(err)
			}
			if existing != nil {
				return existing, nil
			}
		}
	}

	start := domain.Day(req.StartDate)
	end := domain.Day(req.EndDate)

	key := lock.PropertyKey(req.PropertyID)
	token, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer s.locks.Release(ctx, key, token)

	property, err := s.propertyRepo.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, domain.AsError(err)
	}
	if property == nil {
		return nil, domain.NewNotFound("property not found")
	}
	if !property.IsBookable() {
		return nil, domain.NewBooking("property is not available for booking")
	}

	guests := req.Adults + req.Children + req.Infants
	if guests > property.MaxGuests {
		return nil, domain.NewBooking("guest count exceeds the property maximum")
	}
	nights := domain.Nights(start, end)
	if nights < property.MinStay || (property.MaxStay > 0 && nights > property.MaxStay) {
		return nil, domain.NewBooking("stay length is outside the property's allowed range")
	}

	slots, err := s.availabilityRepo.ListOpenSlots(ctx, req.PropertyID, start, end)
	if err != nil {
		return nil, domain.AsError(err)
	}
	if err := checkCoverage(slots, start, end); err != nil {
		return nil, err
	}

	quote := priceRange(property, slots, start, end, guests)

	booking := &domain.Booking{
		PropertyID: req.PropertyID,
		TenantID:   tenantID,
		StartDate:  start,
		EndDate:    end,
		Adults:     req.Adults,
		Children:   req.Children,
		Infants:    req.Infants,
		BasePrice:  quote.BasePrice,
		Taxes:      quote.Taxes,
		Fees:       quote.Fees,
		TotalPrice: quote.TotalPrice,
	}
	payment := &domain.Payment{
		Amount:   quote.TotalPrice,
		Currency: property.Currency,
		Method:   req.PaymentMethod,
	}

	created, err := s.bookingRepo.CreateWithClaim(ctx, booking, payment, slotIDs(slots))
	if err != nil {
		return nil, domain.AsError(err)
	}

	if idempotencyKey != "" {
		if _, err := s.idempotencyRepo.CheckOrCreate(ctx, idempotencyKey, created.ID); err != nil {
			logger.ErrorContext(ctx, "Failed to store idempotency record", "error", err, "booking_id", created.ID)
		}
	}

	event := events.BookingCreatedEvent{
		BookingID:  created.ID,
		PropertyID: created.PropertyID,
		TenantID:   created.TenantID,
		StartDate:  created.StartDate,
		EndDate:    created.EndDate,
		Guests:     created.Guests(),
		TotalPrice: created.TotalPrice,
		Currency:   property.Currency,
		CreatedAt:  created.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking created event", "error", err, "booking_id", created.ID)
	}

	return created, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID, tenantID int64, reason string) (*domain.Booking, error) {
	if bookingID <= 0 || tenantID <= 0 {
		return nil, domain.NewValidation("booking id and tenant id must be positive")
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, domain.AsError(err)
	}
	if booking == nil {
		return nil, domain.NewNotFound("booking not found")
	}
	if !booking.IsOwner(tenantID) {
		return nil, domain.NewBooking("booking belongs to another tenant")
	}

	// Effect-idempotent: a repeat cancel reports the settled state and
	// never releases slots twice.
	if booking.Status == domain.BookingCancelled {
		return booking, nil
	}
	if err := domain.ValidateTransition(booking.Status, domain.BookingCancelled); err != nil {
		return nil, err
	}

	property, err := s.propertyRepo.GetByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, domain.AsError(err)
	}
	policy := domain.DefaultCancellationPolicy()
	if property != nil {
		policy = property.CancellationPolicy
	}

	key := lock.PropertyKey(booking.PropertyID)
	token, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer s.locks.Release(ctx, key, token)

	// Re-read under the lock: a racing cancel can settle the booking
	// between the first read and acquisition, and its refund must not
	// run twice.
	booking, err = s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, domain.AsError(err)
	}
	if booking == nil {
		return nil, domain.NewNotFound("booking not found")
	}
	if booking.Status == domain.BookingCancelled {
		return booking, nil
	}
	if err := domain.ValidateTransition(booking.Status, domain.BookingCancelled); err != nil {
		return nil, err
	}

	now := time.Now()
	fee := cancellationFee(ctx, booking, policy, now)
	refund := booking.TotalPrice - fee

	paymentStatus := domain.PaymentPartiallyRefunded
	if fee == 0 {
		paymentStatus = domain.PaymentRefunded
	}

	cancelled, err := s.bookingRepo.CancelWithRelease(ctx, postgres.CancelParams{
		BookingID:     bookingID,
		Reason:        reason,
		CancelledAt:   now,
		PaymentStatus: paymentStatus,
		RefundAmount:  refund,
	})
	if err != nil {
		return nil, domain.AsError(err)
	}
	if cancelled == nil {
		return nil, domain.NewNotFound("booking not found")
	}

	if cancelled.Payment != nil && refund > 0 {
		s.refunder.IssueRefund(ctx, bookingID, cancelled.Payment.GatewayRef, refund, cancelled.Payment.Currency)
	}

	event := events.BookingCancelledEvent{
		BookingID:    bookingID,
		PropertyID:   cancelled.PropertyID,
		TenantID:     cancelled.TenantID,
		Reason:       reason,
		Fee:          fee,
		RefundAmount: refund,
		CancelledAt:  now,
	}
	if err := s.eventBus.Publish(ctx, events.BookingCancelled, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking cancelled event", "error", err, "booking_id", bookingID)
	}

	return cancelled, nil
}

func (s *bookingService) UpdateBooking(ctx context.Context, bookingID, tenantID int64, patch UpdateBookingRequest) (*domain.Booking, error) {
	if patch.PropertyID != nil {
		return nil, domain.NewValidation("property cannot be changed on an existing booking")
	}
	if bookingID <= 0 || tenantID <= 0 {
		return nil, domain.NewValidation("booking id and tenant id must be positive")
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, domain.AsError(err)
	}
	if booking == nil {
		return nil, domain.NewNotFound("booking not found")
	}
	if !booking.IsOwner(tenantID) {
		return nil, domain.NewBooking("booking belongs to another tenant")
	}
	if booking.Status == domain.BookingCancelled || booking.Status.IsTerminal() {
		return nil, domain.NewBooking("booking can no longer be modified")
	}

	newStart, newEnd := booking.StartDate, booking.EndDate
	if patch.StartDate != nil {
		newStart = domain.Day(*patch.StartDate)
	}
	if patch.EndDate != nil {
		newEnd = domain.Day(*patch.EndDate)
	}
	if !newStart.Before(newEnd) {
		return nil, domain.NewValidation("start date must be before end date")
	}

	adults, children, infants := booking.Adults, booking.Children, booking.Infants
	if patch.Adults != nil {
		adults = *patch.Adults
	}
	if patch.Children != nil {
		children = *patch.Children
	}
	if patch.Infants != nil {
		infants = *patch.Infants
	}
	if adults < 1 || children < 0 || infants < 0 {
		return nil, domain.NewValidation("invalid guest counts")
	}

	datesChanged := !newStart.Equal(booking.StartDate) || !newEnd.Equal(booking.EndDate)
	guestsChanged := adults != booking.Adults || children != booking.Children || infants != booking.Infants
	if !datesChanged && !guestsChanged {
		return booking, nil
	}

	property, err := s.propertyRepo.GetByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, domain.AsError(err)
	}
	if property == nil {
		return nil, domain.NewNotFound("property not found")
	}

	guests := adults + children + infants
	if guests > property.MaxGuests {
		return nil, domain.NewBooking("guest count exceeds the property maximum")
	}
	nights := domain.Nights(newStart, newEnd)
	if nights < property.MinStay || (property.MaxStay > 0 && nights > property.MaxStay) {
		return nil, domain.NewBooking("stay length is outside the property's allowed range")
	}

	key := lock.PropertyKey(booking.PropertyID)
	token, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer s.locks.Release(ctx, key, token)

	if datesChanged {
		overlapping, err := s.bookingRepo.CountOverlapping(ctx, booking.PropertyID, bookingID, newStart, newEnd)
		if err != nil {
			return nil, domain.AsError(err)
		}
		if overlapping > 0 {
			return nil, domain.NewConflict("another booking overlaps the requested dates")
		}
	}

	// The booking's own claimed slots count as usable for the new range.
	all, err := s.availabilityRepo.ListSlots(ctx, booking.PropertyID, newStart, newEnd)
	if err != nil {
		return nil, domain.AsError(err)
	}
	usable := all[:0:0]
	for _, slot := range all {
		open := slot.IsAvailable && slot.BookingID == nil
		ownClaim := slot.BookingID != nil && *slot.BookingID == bookingID
		if open || ownClaim {
			usable = append(usable, slot)
		}
	}
	if err := checkCoverage(usable, newStart, newEnd); err != nil {
		return nil, err
	}

	quote := priceRange(property, usable, newStart, newEnd, guests)

	updated, err := s.bookingRepo.RescheduleWithReclaim(ctx, postgres.RescheduleParams{
		BookingID:    bookingID,
		StartDate:    newStart,
		EndDate:      newEnd,
		Adults:       adults,
		Children:     children,
		Infants:      infants,
		Quote:        quote,
		ClaimSlotIDs: slotIDs(usable),
	})
	if err != nil {
		return nil, domain.AsError(err)
	}

	changes := describeChanges(booking, updated)
	if len(changes) > 0 {
		event := events.BookingUpdatedEvent{
			BookingID: updated.ID,
			TenantID:  updated.TenantID,
			Changes:   changes,
			UpdatedAt: updated.UpdatedAt,
		}
		if err := s.eventBus.Publish(ctx, events.BookingUpdated, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish booking updated event", "error", err, "booking_id", updated.ID)
		}
	}

	return updated, nil
}

func (s *bookingService) CheckAvailability(ctx context.Context, propertyID int64, start, end time.Time) (*AvailabilityResult, error) {
	if propertyID <= 0 {
		return nil, domain.NewValidation("property id must be positive")
	}
	start = domain.Day(start)
	end = domain.Day(end)
	if !start.Before(end) {
		return nil, domain.NewValidation("start date must be before end date")
	}

	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, domain.AsError(err)
	}
	if property == nil {
		return nil, domain.NewNotFound("property not found")
	}

	slots, err := s.availabilityRepo.ListOpenSlots(ctx, propertyID, start, end)
	if err != nil {
		return nil, domain.AsError(err)
	}

	result := &AvailabilityResult{Nights: domain.Nights(start, end)}
	if gap := firstUncoveredDay(slots, start, end); gap != nil {
		result.FirstConflict = gap
		return result, nil
	}

	result.Available = true
	quote := priceRange(property, slots, start, end, 0)
	result.DailyPrices = quote.DailyPrices
	return result, nil
}

func (s *bookingService) GenerateInvoice(ctx context.Context, bookingID, tenantID int64) (*Invoice, error) {
	booking, err := s.GetBooking(ctx, bookingID, tenantID)
	if err != nil {
		return nil, err
	}

	property, err := s.propertyRepo.GetByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, domain.AsError(err)
	}
	tenant, err := s.tenantRepo.FindByID(ctx, booking.TenantID)
	if err != nil {
		return nil, domain.AsError(err)
	}

	inv := &Invoice{
		BookingID: booking.ID,
		StartDate: booking.StartDate,
		EndDate:   booking.EndDate,
		Nights:    booking.Nights(),
		Subtotal:  booking.BasePrice,
		Tax:       booking.Taxes,
		Fees:      booking.Fees,
		Total:     booking.TotalPrice,
		IssuedAt:  time.Now(),
	}
	if property != nil {
		inv.Property = property.Title
		inv.Currency = property.Currency
	}
	if tenant != nil {
		inv.TenantName = tenant.Name
	}
	if booking.Payment != nil {
		inv.Currency = booking.Payment.Currency
		if booking.Payment.Status == domain.PaymentPaid {
			inv.AmountPaid = booking.Payment.Amount
		}
		inv.AmountPaid -= booking.Payment.RefundAmount
		if inv.AmountPaid < 0 {
			inv.AmountPaid = 0
		}
	}
	inv.BalanceDue = inv.Total - inv.AmountPaid
	return inv, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID, tenantID int64) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, domain.AsError(err)
	}
	if booking == nil {
		return nil, domain.NewNotFound("booking not found")
	}
	if !booking.IsOwner(tenantID) {
		return nil, domain.NewBooking("booking belongs to another tenant")
	}
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, tenantID int64, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	bookings, err := s.bookingRepo.ListByTenant(ctx, tenantID, limit, offset, status)
	if err != nil {
		return nil, domain.AsError(err)
	}
	return bookings, nil
}

// RepriceSlots recomputes nightly prices for the host's open slots in
// [start, end) using the dynamic quote. Returns how many slots changed.
func (s *bookingService) RepriceSlots(ctx context.Context, hostID, propertyID int64, start, end time.Time) (int, error) {
	if propertyID <= 0 || hostID <= 0 {
		return 0, domain.NewValidation("host id and property id must be positive")
	}
	start = domain.Day(start)
	end = domain.Day(end)
	if !start.Before(end) {
		return 0, domain.NewValidation("start date must be before end date")
	}

	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return 0, domain.AsError(err)
	}
	if property == nil {
		return 0, domain.NewNotFound("property not found")
	}
	if property.HostID != hostID {
		return 0, domain.NewBooking("property belongs to another host")
	}

	key := lock.PropertyKey(propertyID)
	token, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return 0, err
	}
	defer s.locks.Release(ctx, key, token)

	slots, err := s.availabilityRepo.ListOpenSlots(ctx, propertyID, start, end)
	if err != nil {
		return 0, domain.AsError(err)
	}
	if len(slots) == 0 {
		return 0, nil
	}

	now := time.Now()
	nights := domain.Nights(start, end)
	prices := make(map[int64]float64, len(slots))
	for i := range slots {
		base := slots[i].PriceOr(property.BasePrice)
		prices[slots[i].ID] = quoteSlotPrice(property, base, slots[i].StartDate, nights, now)
	}

	if err := s.availabilityRepo.UpdateSlotPrices(ctx, propertyID, prices); err != nil {
		return 0, domain.AsError(err)
	}
	return len(prices), nil
}

func validateCreateRequest(tenantID int64, req *CreateBookingRequest) error {
	if req == nil {
		return domain.NewValidation("missing booking request")
	}
	if req.PropertyID <= 0 || tenantID <= 0 {
		return domain.NewValidation("property id and tenant id must be positive")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return domain.NewValidation("start and end dates are required")
	}
	if !domain.Day(req.StartDate).Before(domain.Day(req.EndDate)) {
		return domain.NewValidation("start date must be before end date")
	}
	if req.Adults < 1 {
		return domain.NewValidation("at least one adult is required")
	}
	if req.Children < 0 || req.Infants < 0 {
		return domain.NewValidation("guest counts cannot be negative")
	}
	return nil
}

func describeChanges(old, new *domain.Booking) []string {
	var changes []string

	if !old.StartDate.Equal(new.StartDate) {
		changes = append(changes, "start_date")
	}
	if !old.EndDate.Equal(new.EndDate) {
		changes = append(changes, "end_date")
	}
	if old.Adults != new.Adults {
		changes = append(changes, "adults")
	}
	if old.Children != new.Children {
		changes = append(changes, "children")
	}
	if old.Infants != new.Infants {
		changes = append(changes, "infants")
	}
	if old.TotalPrice != new.TotalPrice {
		changes = append(changes, "total_price")
	}

	return changes
}
