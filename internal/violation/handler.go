// internal/violation/handler.go
package violation

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aldegalts/car-rental/internal/httpx"
	"github.com/aldegalts/car-rental/internal/rental"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleCreate serves POST /rentals/{rentalID}/violations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	rentalID, err := httpx.ParseID(chi.URLParam(r, "rentalID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var req struct {
		ViolationTypeID string           `json:"violation_type_id" validate:"required"`
		Description     string           `json:"description" validate:"max=500"`
		FineAmount      *decimal.Decimal `json:"fine_amount"`
		ViolationDate   time.Time        `json:"violation_date"`
		IsPaid          bool             `json:"is_paid"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.FineAmount == nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "fine_amount is required")
		return
	}

	v, err := h.service.Record(r.Context(), NewViolation{
		RentalID:        rentalID,
		ViolationTypeID: req.ViolationTypeID,
		Description:     req.Description,
		FineAmount:      *req.FineAmount,
		ViolationDate:   req.ViolationDate,
		IsPaid:          req.IsPaid,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, v)
}

// HandleListForRental serves GET /rentals/{rentalID}/violations.
func (h *Handler) HandleListForRental(w http.ResponseWriter, r *http.Request) {
	rentalID, err := httpx.ParseID(chi.URLParam(r, "rentalID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	violations, err := h.service.ListForRental(r.Context(), rentalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, violations)
}

// HandleListMine serves GET /me/violations.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.CustomerID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	violations, err := h.service.ListForCustomer(r.Context(), customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, violations)
}

// HandleGetMine serves GET /me/violations/{violationID}.
func (h *Handler) HandleGetMine(w http.ResponseWriter, r *http.Request) {
	customerID, err := httpx.CustomerID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}
	id, ok := violationID(w, r)
	if !ok {
		return
	}

	v, err := h.service.GetForCustomer(r.Context(), customerID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

// HandleList serves GET /violations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	violations, err := h.service.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, violations)
}

// HandleGet serves GET /violations/{violationID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := violationID(w, r)
	if !ok {
		return
	}

	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

// HandleUpdate serves PUT /violations/{violationID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := violationID(w, r)
	if !ok {
		return
	}

	var req struct {
		RentalID        *uuid.UUID       `json:"rental_id"`
		ViolationTypeID string           `json:"violation_type_id" validate:"required"`
		Description     string           `json:"description" validate:"max=500"`
		FineAmount      *decimal.Decimal `json:"fine_amount"`
		ViolationDate   time.Time        `json:"violation_date"`
		IsPaid          bool             `json:"is_paid"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.FineAmount == nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "fine_amount is required")
		return
	}

	upd := ViolationUpdate{
		ViolationTypeID: req.ViolationTypeID,
		Description:     req.Description,
		FineAmount:      *req.FineAmount,
		ViolationDate:   req.ViolationDate,
		IsPaid:          req.IsPaid,
	}
	if req.RentalID != nil {
		upd.RentalID = *req.RentalID
	}

	v, err := h.service.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

// HandleDelete serves DELETE /violations/{violationID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := violationID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func violationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := httpx.ParseID(chi.URLParam(r, "violationID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func writeList(w http.ResponseWriter, violations []*Violation) {
	if violations == nil {
		violations = []*Violation{}
	}
	httpx.WriteJSON(w, http.StatusOK, violations)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rental.ErrRentalNotFound), errors.Is(err, ErrViolationNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrInvalidViolation):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to access violations")
	}
}
