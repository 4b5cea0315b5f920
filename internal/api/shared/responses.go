package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
)

// ErrorResponse is the body of every error response. Errors is only set for
// validation failures and maps field names to messages.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors,omitempty"`
	TraceID string              `json:"trace_id,omitempty"`
}

// MessageResponse is the body of responses that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// ResponseOption customizes error responses.
type ResponseOption func(*responseOptions)

type responseOptions struct {
	elevateLogLevel bool
	fieldErrors     map[string][]string
}

// WithElevatedLogLevel logs a 4xx response at WARN instead of DEBUG.
func WithElevatedLogLevel() ResponseOption {
	return func(opts *responseOptions) {
		opts.elevateLogLevel = true
	}
}

// WithFieldErrors includes field-keyed messages in the response body.
func WithFieldErrors(errs map[string][]string) ResponseOption {
	return func(opts *responseOptions) {
		opts.fieldErrors = errs
	}
}

// RespondWithJSON writes data as JSON with the given status code.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContextOrDefault(r.Context(), slog.Default()).Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

// RespondWithError writes an error body carrying the request's trace ID.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string, opts ...ResponseOption) {
	RespondWithErrorAndLog(w, r, status, message, nil, opts...)
}

// RespondWithErrorAndLog writes an error body with userMessage and logs err
// after redaction. err never reaches the client.
//
// 5xx responses are logged at ERROR, 429 at WARN and other statuses at DEBUG
// unless WithElevatedLogLevel is given.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	var options responseOptions
	for _, opt := range opts {
		opt(&options)
	}

	traceID := GetTraceID(r.Context())

	attrs := []slog.Attr{
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	level := slog.LevelDebug
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status == http.StatusTooManyRequests:
		level = slog.LevelWarn
	case options.elevateLogLevel && status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}
	logger.FromContextOrDefault(r.Context(), slog.Default()).
		LogAttrs(r.Context(), level, "API error response", attrs...)

	RespondWithJSON(w, r, status, ErrorResponse{
		Error:   userMessage,
		Errors:  options.fieldErrors,
		TraceID: traceID,
	})
}
