package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
	mw "github.com/wanderstay/wanderstay-bookings/internal/http/middleware"
	"github.com/wanderstay/wanderstay-bookings/internal/http/response"
	"github.com/wanderstay/wanderstay-bookings/internal/service"
)

type BookingsHandler struct {
	bookings service.BookingService
	bulk     *service.BulkProcessor
}

func NewBookingsHandler(bookings service.BookingService, bulk *service.BulkProcessor) *BookingsHandler {
	return &BookingsHandler{bookings: bookings, bulk: bulk}
}

func (h *BookingsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Post("/bulk", h.createBulk)
	r.Get("/", h.list)
	r.Get("/{id}", h.getByID)
	r.Get("/{id}/invoice", h.invoice)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.cancel)
	return r
}

func (h *BookingsHandler) create(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "missing credentials")
		return
	}

	var in service.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	booking, err := h.bookings.CreateBooking(r.Context(), claims.Sub, &in, idempotencyKey)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, booking)
}

func (h *BookingsHandler) createBulk(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "missing credentials")
		return
	}

	var in struct {
		Requests []service.CreateBookingRequest `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if len(in.Requests) == 0 {
		response.BadRequest(w, "requests must not be empty")
		return
	}
	if len(in.Requests) > 50 {
		response.BadRequest(w, "at most 50 requests per batch")
		return
	}

	results := h.bulk.ProcessMany(r.Context(), claims.Sub, in.Requests)
	response.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *BookingsHandler) getByID(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "missing credentials")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), id, claims.Sub)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, booking)
}

func (h *BookingsHandler) invoice(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "missing credentials")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	inv, err := h.bookings.GenerateInvoice(r.Context(), id, claims.Sub)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, inv)
}

func (h *BookingsHandler) update(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "missing credentials")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	var patch service.UpdateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	booking, err := h.bookings.UpdateBooking(r.Context(), id, claims.Sub, patch)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, booking)
}

func (h *BookingsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "missing credentials")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	var in struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&in)
	}
	if in.Reason == "" {
		in.Reason = "tenant_requested"
	}

	booking, err := h.bookings.CancelBooking(r.Context(), id, claims.Sub, in.Reason)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, booking)
}

func (h *BookingsHandler) list(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "missing credentials")
		return
	}

	// defaults
	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid limit")
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid offset")
			return
		}
		offset = n
	}

	var status *domain.BookingStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s, ok := domain.ParseBookingStatus(v)
		if !ok {
			response.BadRequest(w, "invalid status")
			return
		}
		status = &s
	}

	bookings, err := h.bookings.ListBookings(r.Context(), claims.Sub, limit, offset, status)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}

	response.WriteJSON(w, http.StatusOK, bookings)
}
