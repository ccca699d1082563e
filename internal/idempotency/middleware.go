// internal/idempotency/middleware.go
package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/aldegalts/car-rental/internal/httpx"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"

	maxBody = 1 << 20
)

// Middleware replays the stored response when a request repeats an
// Idempotency-Key. Only successful responses are kept; a failed request frees
// its key for a retry. Reusing a key with a different body is rejected.
func Middleware(store *Store, log logr.Logger) func(http.Handler) http.Handler {
	log = log.WithName("idempotency")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				httpx.WriteError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body exceeds 1 MiB")
				return
			case err != nil:
				httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			scoped := r.Method + " " + r.URL.Path + " " + key + " " + r.Header.Get(httpx.HeaderCustomerID)
			sum := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(sum[:])

			existing, claimed, err := store.Claim(scoped, fingerprint)
			if err != nil {
				log.Error(err, "idempotency store unavailable")
				httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "idempotency store unavailable")
				return
			}
			if !claimed {
				switch {
				case existing.Fingerprint != fingerprint:
					httpx.WriteError(w, http.StatusUnprocessableEntity, "idempotency_mismatch",
						"idempotency key reused with a different request body")
				case existing.InFlight():
					httpx.WriteError(w, http.StatusConflict, "request_in_progress",
						"a request with this idempotency key is still being processed")
				default:
					w.Header().Set("Content-Type", existing.ContentType)
					w.Header().Set(HeaderReplayed, "true")
					w.WriteHeader(existing.Status)
					w.Write(existing.Body)
				}
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= 200 && rec.status < 300 {
				err = store.Complete(scoped, Record{
					Fingerprint: fingerprint,
					Status:      rec.status,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				})
			} else {
				err = store.Release(scoped)
			}
			if err != nil {
				log.Error(err, "failed to record idempotent response", "key", key)
			}
		})
	}
}

// recorder tees the response into a buffer.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
