package spotify

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidURL    = errors.New("invalid playlist url")
	ErrNoCredentials = errors.New("spotify client credentials not configured")
	ErrEmptyPlaylist = errors.New("playlist has no usable tracks")
)

// APIError is a non-2xx answer from the Web API or the token endpoint.
type APIError struct {
	Endpoint string
	Message  string
	Status   int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify %s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("spotify %s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == 429 || e.Status >= 500
}

// IsNotFound reports whether err is a 404 from the Web API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
