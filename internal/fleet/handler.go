// internal/fleet/handler.go
package fleet

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aldegalts/car-rental/internal/httpx"
	"github.com/aldegalts/car-rental/internal/status"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleList serves GET /cars. Query parameters brand, model, category_id,
// color_id, min_year, max_year, min_rate and max_rate narrow the list.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cars, err := h.service.ListCars(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if cars == nil {
		cars = []*Car{}
	}
	httpx.WriteJSON(w, http.StatusOK, cars)
}

// HandleGet serves GET /cars/{carID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "carID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	car, err := h.service.GetCar(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, car)
}

// HandleCreate serves POST /cars.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Brand        string           `json:"brand" validate:"required,max=50"`
		Model        string           `json:"model" validate:"required,max=50"`
		Year         int              `json:"year" validate:"gte=1900,lte=2100"`
		LicensePlate string           `json:"license_plate" validate:"required,max=20"`
		CategoryID   string           `json:"category_id"`
		ColorID      string           `json:"color_id"`
		DailyRate    *decimal.Decimal `json:"daily_rate"`
		StatusID     *uuid.UUID       `json:"car_status_id"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.DailyRate == nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "daily_rate is required")
		return
	}

	car, err := h.service.AddCar(r.Context(), NewCar{
		Brand:        req.Brand,
		Model:        req.Model,
		Year:         req.Year,
		LicensePlate: req.LicensePlate,
		CategoryID:   req.CategoryID,
		ColorID:      req.ColorID,
		DailyRate:    *req.DailyRate,
		StatusID:     req.StatusID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, car)
}

// HandleUpdate serves PUT /cars/{carID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "carID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var req struct {
		Brand        string           `json:"brand" validate:"required,max=50"`
		Model        string           `json:"model" validate:"required,max=50"`
		Year         int              `json:"year" validate:"gte=1900,lte=2100"`
		LicensePlate string           `json:"license_plate" validate:"required,max=20"`
		CategoryID   string           `json:"category_id"`
		ColorID      string           `json:"color_id"`
		DailyRate    *decimal.Decimal `json:"daily_rate"`
		StatusID     *uuid.UUID       `json:"car_status_id"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.DailyRate == nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "daily_rate is required")
		return
	}

	car, err := h.service.UpdateCar(r.Context(), id, CarUpdate{
		Brand:        req.Brand,
		Model:        req.Model,
		Year:         req.Year,
		LicensePlate: req.LicensePlate,
		CategoryID:   req.CategoryID,
		ColorID:      req.ColorID,
		DailyRate:    *req.DailyRate,
		StatusID:     req.StatusID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, car)
}

// HandleDelete serves DELETE /cars/{carID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "carID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.service.DeleteCar(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseFilter(r *http.Request) (CarFilter, error) {
	q := r.URL.Query()
	filter := CarFilter{
		Brand:      q.Get("brand"),
		Model:      q.Get("model"),
		CategoryID: q.Get("category_id"),
		ColorID:    q.Get("color_id"),
	}

	var err error
	if filter.MinYear, err = intParam(q.Get("min_year")); err != nil {
		return filter, fmt.Errorf("min_year: %w", err)
	}
	if filter.MaxYear, err = intParam(q.Get("max_year")); err != nil {
		return filter, fmt.Errorf("max_year: %w", err)
	}
	if filter.MinRate, err = decimalParam(q.Get("min_rate")); err != nil {
		return filter, fmt.Errorf("min_rate: %w", err)
	}
	if filter.MaxRate, err = decimalParam(q.Get("max_rate")); err != nil {
		return filter, fmt.Errorf("max_rate: %w", err)
	}
	return filter, nil
}

func intParam(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func decimalParam(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCarNotFound), errors.Is(err, status.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrInvalidCar):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrDuplicatePlate):
		httpx.WriteError(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, ErrCarInUse), errors.Is(err, ErrVersionConflict), errors.Is(err, ErrRentedStatus):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to access fleet")
	}
}
