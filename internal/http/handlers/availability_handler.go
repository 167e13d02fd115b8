package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/wanderstay/wanderstay-bookings/internal/http/middleware"
	"github.com/wanderstay/wanderstay-bookings/internal/http/response"
	"github.com/wanderstay/wanderstay-bookings/internal/service"
)

type AvailabilityHandler struct {
	bookings service.BookingService
}

func NewAvailabilityHandler(bookings service.BookingService) *AvailabilityHandler {
	return &AvailabilityHandler{bookings: bookings}
}

// Routes for public availability probing; no auth needed, reads only.
func (h *AvailabilityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}/availability", h.check)
	return r
}

// HostRoutes for host-side calendar operations; mounted behind JWT.
func (h *AvailabilityHandler) HostRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{id}/slots/reprice", h.reprice)
	return r
}

func parseDateRange(r *http.Request) (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		return
	}
	end, err = time.Parse("2006-01-02", r.URL.Query().Get("end"))
	return
}

func (h *AvailabilityHandler) check(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid property id")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		response.BadRequest(w, "start and end must be YYYY-MM-DD dates")
		return
	}

	result, err := h.bookings.CheckAvailability(r.Context(), id, start, end)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}

func (h *AvailabilityHandler) reprice(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "missing credentials")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid property id")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		response.BadRequest(w, "start and end must be YYYY-MM-DD dates")
		return
	}

	n, err := h.bookings.RepriceSlots(r.Context(), claims.Sub, id, start, end)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"repriced": n})
}
