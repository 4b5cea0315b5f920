package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/authz"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// User-facing messages.
const (
	MsgInvalidData        = "The given data was invalid."
	MsgUnauthenticated    = "Unauthenticated."
	MsgForbidden          = "This action is unauthorized."
	MsgInvalidCredentials = "The provided credentials are incorrect."
	MsgEmailTaken         = "The email has already been taken."
	MsgUsernameTaken      = "The username has already been taken."
	MsgTaskDeleted        = "Task deleted successfully"
	MsgLoggedOut          = "Successfully logged out"
)

// MapErrorToStatusCode maps an error to its HTTP status. Unknown errors are
// 500 so that internal failures never look like client mistakes.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, shared.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, shared.ErrMalformedBody):
		return http.StatusBadRequest

	// A malformed ID can never match a route binding.
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusNotFound

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrRevokedToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, authz.ErrNoPrincipal),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, store.ErrEmailExists),
		errors.Is(err, store.ErrUsernameExists):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a message for err that is safe to show to
// clients.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, shared.ErrUnsupportedMediaType):
		return "Content-Type must be application/json"
	case errors.Is(err, shared.ErrMalformedBody):
		return "Malformed JSON request body"
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrRevokedToken):
		return "Token revoked"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"
	case MapErrorToStatusCode(err) == http.StatusUnauthorized:
		return MsgUnauthenticated
	case errors.Is(err, service.ErrNotOwned):
		return MsgForbidden
	case MapErrorToStatusCode(err) == http.StatusUnprocessableEntity:
		return MsgInvalidData
	default:
		return "An unexpected error occurred"
	}
}

// FieldErrors returns the field-keyed messages for a 422 error, or nil.
func FieldErrors(err error) map[string][]string {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return map[string][]string{"login": {MsgInvalidCredentials}}
	case errors.Is(err, store.ErrEmailExists):
		return map[string][]string{"email": {MsgEmailTaken}}
	case errors.Is(err, store.ErrUsernameExists):
		return map[string][]string{"username": {MsgUsernameTaken}}
	}

	var errs domain.ValidationErrors
	var fieldErr *domain.ValidationError
	switch {
	case errors.As(err, &errs):
		return errs
	case errors.As(err, &fieldErr):
		return map[string][]string{fieldErr.Field: {fieldErr.Message}}
	default:
		return nil
	}
}

// HandleAPIError writes the response for err. A non-empty defaultMsg
// replaces the generic message of 500 responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnprocessableEntity {
		opts = append(opts, shared.WithFieldErrors(FieldErrors(err)))
	}
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
