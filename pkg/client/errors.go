package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoRefreshToken  = errors.New("no refresh token")
	ErrRefreshRequest  = errors.New("failed to request token refresh")
	ErrRefreshRejected = errors.New("token refresh rejected")
	ErrRefreshResponse = errors.New("invalid token refresh response")
	ErrSessionExpired  = errors.New("session expired")
)

// StatusError is returned by the JSON helpers when the remote answers with a
// non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s",
		e.Method,
		e.URL,
		e.StatusCode,
		http.StatusText(e.StatusCode),
	)
}

// IsUnauthorized reports whether err means the session can no longer authorize
// calls: either the refresh procedure failed, or a call was still rejected as
// unauthorized after its single retry. Callers typically respond by sending the
// user back to log in.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusUnauthorized
	}
	return false
}
