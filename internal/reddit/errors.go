package reddit

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-200 response from the Reddit API. The run controller
// treats any fetch error as a per-target skip, but callers can still
// distinguish a vanished account from a rate limit.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit: %s (HTTP %d)", e.Message, e.StatusCode)
}

// IsNotFound reports whether err is a 404, which Reddit also returns for
// suspended and deleted accounts.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is a 429.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
