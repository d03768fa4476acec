package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRejected     = errors.New("request rejected")
	ErrNotLoggedIn  = errors.New("not logged in")
)

// RejectedError is an authoritative refusal by the server (validation,
// conflict, not found). It matches ErrRejected.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request rejected (%d)", e.Status)
	}
	return fmt.Sprintf("request rejected (%d): %s", e.Status, e.Message)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// IsTransient reports whether err is a connectivity problem worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
