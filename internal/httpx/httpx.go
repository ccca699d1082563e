// Package httpx holds the JSON, validation and middleware plumbing shared by
// the service handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// HeaderCustomerID carries the caller's customer id, set by the upstream
// authentication gateway.
const HeaderCustomerID = "X-Customer-ID"

var validate = validator.New()

// ErrMissingCustomer is returned when a customer-scoped route is called
// without a customer id.
var ErrMissingCustomer = errors.New("missing customer id")

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes a {"error", "message"} body.
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	WriteJSON(w, code, map[string]string{
		"error":   errCode,
		"message": message,
	})
}

// Decode reads a JSON body into dst and runs struct validation on it.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid request: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

// CustomerID returns the customer id the gateway attached to r.
func CustomerID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(HeaderCustomerID)
	if raw == "" {
		return uuid.Nil, ErrMissingCustomer
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid customer id: %w", err)
	}
	return id, nil
}

// ParseID parses a UUID path or query parameter.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
