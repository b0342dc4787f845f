package reporting

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the server cannot be reached
	ErrUnavailable = errors.New("reporting: server unavailable")
	// ErrUnauthorized is returned when login fails or a fresh token is rejected
	ErrUnauthorized = errors.New("reporting: unauthorized")
	// ErrInvalidResponse is returned for bodies that cannot be decoded
	ErrInvalidResponse = errors.New("reporting: invalid response")
	// ErrResponseTooLarge is returned when a body exceeds maxResponseSize
	ErrResponseTooLarge = errors.New("reporting: response too large")
)

// StatusError carries a non-2xx upstream answer
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reporting: %s returned HTTP %d: %s", e.Op, e.Status, e.Body)
}
