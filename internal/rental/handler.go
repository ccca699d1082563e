// internal/rental/handler.go
package rental

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aldegalts/car-rental/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleCreate serves POST /rentals. A customer id attached by the gateway
// takes precedence over one in the body.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID  *uuid.UUID       `json:"customer_id"`
		CarID       uuid.UUID        `json:"car_id" validate:"required"`
		StartDate   string           `json:"start_date" validate:"required"`
		EndDate     string           `json:"end_date" validate:"required"`
		TotalAmount *decimal.Decimal `json:"total_amount"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	customerID, err := httpx.CustomerID(r)
	switch {
	case errors.Is(err, httpx.ErrMissingCustomer) && req.CustomerID != nil:
		customerID = *req.CustomerID
	case err != nil:
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	rental, err := h.service.Create(r.Context(), NewRental{
		CustomerID: customerID,
		CarID:      req.CarID,
		StartDate:  start,
		EndDate:    end,
		Amount:     req.TotalAmount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rental)
}

// HandleList serves GET /rentals?car_id=&customer_id=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var filter Filter
	for param, dst := range map[string]**uuid.UUID{
		"car_id":      &filter.CarID,
		"customer_id": &filter.CustomerID,
	} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}
		id, err := httpx.ParseID(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		*dst = &id
	}

	rentals, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, rentals)
}

// HandleGet serves GET /rentals/{rentalID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := rentalID(w, r)
	if !ok {
		return
	}

	rental, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rental)
}

// HandleUpdate serves PUT /rentals/{rentalID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := rentalID(w, r)
	if !ok {
		return
	}

	var req struct {
		CustomerID  uuid.UUID        `json:"customer_id" validate:"required"`
		CarID       uuid.UUID        `json:"car_id" validate:"required"`
		StartDate   string           `json:"start_date" validate:"required"`
		EndDate     string           `json:"end_date" validate:"required"`
		TotalAmount *decimal.Decimal `json:"total_amount"`
		StatusID    uuid.UUID        `json:"rental_status_id" validate:"required"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.TotalAmount == nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "total_amount is required")
		return
	}
	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	rental, err := h.service.Update(r.Context(), id, RentalUpdate{
		CustomerID:  req.CustomerID,
		CarID:       req.CarID,
		StartDate:   start,
		EndDate:     end,
		TotalAmount: *req.TotalAmount,
		StatusID:    req.StatusID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rental)
}

// HandleDelete serves DELETE /rentals/{rentalID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := rentalID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleValid serves GET /rentals/{rentalID}/valid.
func (h *Handler) HandleValid(w http.ResponseWriter, r *http.Request) {
	id, ok := rentalID(w, r)
	if !ok {
		return
	}

	valid, err := h.service.IsValid(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"rental_id": id, "valid": valid})
}

// HandleHistory serves GET /rentals/{rentalID}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := rentalID(w, r)
	if !ok {
		return
	}

	events, err := h.service.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, events)
}

// HandleSweep serves POST /admin/sweep.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SweepExpired(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"count":     result.Count(),
		"completed": result.Completed,
		"failed":    result.Failed,
	})
}

// HandleStatistics serves GET /admin/rental-statistics?start_date=&end_date=.
func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	start, err := parseTime(r.URL.Query().Get("start_date"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "start_date: "+err.Error())
		return
	}
	end, err := parseTime(r.URL.Query().Get("end_date"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "end_date: "+err.Error())
		return
	}

	stats, err := h.service.ComputeStatistics(r.Context(), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats.Report())
}

// HandleListMine serves GET /me/rentals.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.CustomerID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	rentals, err := h.service.ListForCustomer(r.Context(), customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, rentals)
}

// HandleGetMine serves GET /me/rentals/{rentalID}.
func (h *Handler) HandleGetMine(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.CustomerID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}
	id, ok := rentalID(w, r)
	if !ok {
		return
	}

	rental, err := h.service.GetForCustomer(r.Context(), customerID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rental)
}

func rentalID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := httpx.ParseID(chi.URLParam(r, "rentalID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func writeList(w http.ResponseWriter, rentals []*Rental) {
	if rentals == nil {
		rentals = []*Rental{}
	}
	httpx.WriteJSON(w, http.StatusOK, rentals)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 and the zone-less layouts a browser date
// picker submits. Zone-less values are read as UTC.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("value is required")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", raw)
}

func parseWindow(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, err := parseTime(rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := parseTime(rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date: %w", err)
	}
	return start, end, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCarNotFound), errors.Is(err, ErrRentalNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrCarUnavailable):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ErrInvalidRental), errors.Is(err, ErrInvalidWindow):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrConfiguration):
		httpx.WriteError(w, http.StatusInternalServerError, "configuration_error", "rental status catalog is unavailable")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to process rental")
	}
}
