package web

// errors.go provides unified error response handling for the web layer.
//
// Handlers return domain errors unchanged; respondError maps them to an
// HTTP status and a JSON envelope, and logs the technical error with the
// chi request ID for correlation.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/propstack/leadbook/internal/buyer"
	"github.com/propstack/leadbook/internal/csvio"
	"github.com/propstack/leadbook/internal/store"
)

// errRateLimited marks a request rejected by the fixed-window limiter.
var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse is the JSON structure for API error responses. Fields
// is populated only for validation failures.
type ErrorResponse struct {
	Error  string                  `json:"error"`
	Code   string                  `json:"code"`
	Fields []buyer.ValidationError `json:"fields,omitempty"`
}

// respondError maps a domain error to an HTTP response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", body.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// mapError resolves a domain error to a status code and client-safe
// envelope. Unknown errors become an opaque 500 so internals never leak.
func mapError(err error) (int, ErrorResponse) {
	var verrs buyer.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, ErrorResponse{
			Error:  verrs.Error(),
			Code:   "validation_failed",
			Fields: verrs,
		}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "buyer not found",
			Code:  "not_found",
		}
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, ErrorResponse{
			Error: "Record changed, please refresh",
			Code:  "conflict",
		}
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{
			Error: "not allowed to modify this buyer",
			Code:  "forbidden",
		}
	case errors.Is(err, errRateLimited), errors.Is(err, csvio.ErrTooManyImports):
		return http.StatusTooManyRequests, ErrorResponse{
			Error: "too many requests, please retry later",
			Code:  "rate_limited",
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "internal",
		}
	}
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// writeBadRequest reports a malformed request that never reached domain
// validation, such as an unparsable body or identifier.
func writeBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: "bad_request"})
}
