package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// getUserIDFromContext returns the principal placed in the context by the
// authentication middleware.
func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	return shared.UserIDFromContext(r.Context())
}

// getPathUUID parses a UUID path parameter. A missing or malformed value
// wraps domain.ErrInvalidID, which is reported as not found: a string that
// cannot be an id cannot name an existing resource.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrInvalidID)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// handleUserID writes a 401 and returns false when the request has no
// principal.
func handleUserID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		logger.FromContextOrDefault(r.Context(), log).Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, MsgUnauthenticated)
		return uuid.Nil, false
	}
	return userID, true
}

// handleUserIDAndPathUUID extracts the principal and a UUID path parameter,
// writing the error response if either is unusable.
func handleUserIDAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := handleUserID(w, r, log)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	pathID, err := getPathUUID(r, paramName)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), log).Debug("invalid path parameter",
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, pathID, true
}
