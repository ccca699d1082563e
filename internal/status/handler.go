// internal/status/handler.go
package status

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aldegalts/car-rental/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleList serves GET /statuses/{kind}.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	kind := Kind(chi.URLParam(r, "kind"))

	statuses, err := h.service.List(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	if statuses == nil {
		statuses = []*Status{}
	}

	httpx.WriteJSON(w, http.StatusOK, statuses)
}

// HandleCreate serves POST /statuses/{kind}.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	kind := Kind(chi.URLParam(r, "kind"))

	var req struct {
		Name string `json:"name" validate:"required,max=50"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	st, err := h.service.Create(r.Context(), kind, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, st)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidKind):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrInvalidName):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.WriteError(w, http.StatusConflict, "duplicate", err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to access status catalog")
	}
}
