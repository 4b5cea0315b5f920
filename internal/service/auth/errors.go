package auth

import "errors"

var (
	// ErrInvalidToken indicates the access token is malformed, badly signed
	// or otherwise unusable.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the access token has expired.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token's nbf/iat lies in the future.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken indicates no token was provided.
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrRevokedToken indicates the token was revoked by a logout.
	ErrRevokedToken = errors.New("authentication token has been revoked")

	// ErrInvalidRefreshToken indicates the refresh token is unusable.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrExpiredRefreshToken indicates the refresh token has expired.
	ErrExpiredRefreshToken = errors.New("refresh token has expired")

	// ErrWrongTokenType indicates a refresh token was used as an access
	// token or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
)
