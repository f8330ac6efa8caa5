package oauth2

import "errors"

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrStateMismatch  = errors.New("unknown or expired oauth state")
	ErrRefreshFailed  = errors.New("token refresh failed")
)
