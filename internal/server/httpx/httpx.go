// Package httpx holds the JSON request and response helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message   string            `json:"message"`
	Success   bool              `json:"success"`
	Timestamp time.Time         `json:"timestamp"`
	Code      string            `json:"code"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// Now is the clock used for error timestamps; tests may replace it.
var Now = func() time.Time { return time.Now().UTC() }

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorBody with optional per-field messages.
func WriteError(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	WriteJSON(w, status, ErrorBody{
		Message:   message,
		Success:   false,
		Timestamp: Now(),
		Code:      code,
		Errors:    fields,
	})
}

// ErrBadBody is returned by DecodeJSON for unreadable, oversized or non-JSON bodies.
var ErrBadBody = errors.New("malformed request body")

// DecodeJSON decodes a single JSON object from r into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return ErrBadBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrBadBody)
	}
	return nil
}

// Route is one handler a feature package contributes to the server mux.
// Protected routes are wrapped with the access-token middleware at registration.
type Route struct {
	Pattern   string
	Handler   http.Handler
	Protected bool
}
