package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the lot domain. Use errors.Is() to check these.
var (
	// ErrItemNotFound indicates the item is not present in the local collection.
	ErrItemNotFound = errors.New("item not found")

	// ErrValidation indicates a draft was rejected before any mutation happened.
	ErrValidation = errors.New("validation failed")

	// ErrTransport indicates the remote item store failed or was unreachable.
	ErrTransport = errors.New("remote item store failed")
)

// ValidationError describes a rejected draft field. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports ErrValidation so callers can match with errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransportError wraps any failure returned by the remote item store:
// connection errors (Status == 0) and non-2xx responses alike.
type TransportError struct {
	Op     string // list, get, create, update, delete
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s item: remote returned status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s item: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports ErrTransport so callers can match with errors.Is.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
