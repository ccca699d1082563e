// internal/clients/rental_client.go
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/aldegalts/car-rental/internal/httpx"
	"github.com/aldegalts/car-rental/internal/rental"
)

// APIError is a non-success response from the rental service.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Code, e.StatusCode, e.Message)
}

// SweepResponse is the body of POST /admin/sweep.
type SweepResponse struct {
	Count     int                   `json:"count"`
	Completed []uuid.UUID           `json:"completed"`
	Failed    []rental.SweepFailure `json:"failed"`
}

type RentalClient struct {
	baseURL  string
	adminKey string
	http     *http.Client
}

func NewRentalClient(baseURL, adminKey string) *RentalClient {
	return &RentalClient{
		baseURL:  baseURL,
		adminKey: adminKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Sweep triggers an expiry sweep.
func (c *RentalClient) Sweep(ctx context.Context) (*SweepResponse, error) {
	var out SweepResponse
	if err := c.do(ctx, http.MethodPost, "/admin/sweep", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Statistics fetches the violation rate for rentals inside [start, end].
func (c *RentalClient) Statistics(ctx context.Context, start, end time.Time) (*rental.StatisticsReport, error) {
	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))

	var out rental.StatisticsReport
	if err := c.do(ctx, http.MethodGet, "/admin/rental-statistics", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsValid asks whether a rental is Active and unexpired.
func (c *RentalClient) IsValid(ctx context.Context, id uuid.UUID) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rentals/%s/valid", id), nil, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// GetRental fetches a rental by id.
func (c *RentalClient) GetRental(ctx context.Context, id uuid.UUID) (*rental.Rental, error) {
	var out rental.Rental
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rentals/%s", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RentalClient) do(ctx context.Context, method, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return err
	}
	if c.adminKey != "" {
		req.Header.Set(httpx.HeaderAdminKey, c.adminKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
