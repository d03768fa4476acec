package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrOfflineUnsupported = errors.New("operation requires a connection to the server")
	ErrInvalidStatus      = errors.New("invalid package status")
)

// localError marks a failure of the local store. It ends the operation in
// progress and is never downgraded to an advisory.
type localError struct {
	err error
}

func (e *localError) Error() string { return fmt.Sprintf("local store: %v", e.err) }
func (e *localError) Unwrap() error { return e.err }

func local(err error) error {
	if err == nil {
		return nil
	}
	return &localError{err: err}
}

func isLocal(err error) bool {
	var le *localError
	return errors.As(err, &le)
}
