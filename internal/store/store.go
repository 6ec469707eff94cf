// Package store provides the durable key-value byte store behind the content
// and lead repositories.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Fixed keys used by the site.
const (
	ContentKey = "uluk_site_content_v1"
	LeadsKey   = "uluk_leads_v1"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("store: not found")

// Store is a durable key-value byte store.
type Store interface {
	// Get returns the stored bytes or an error satisfying IsNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes the key; deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Error describes a failed store operation.
type Error struct {
	Op          string
	Key         string
	Err         error
	notFound    bool
	unavailable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether the key was absent.
func (e *Error) IsNotFound() bool { return e != nil && e.notFound }

// IsUnavailable reports whether the backend could not be reached.
func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }

func notFound(op, key string) error {
	return &Error{Op: op, Key: key, Err: ErrNotFound, notFound: true}
}

func wrap(op, key string, err error, unavailable bool) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Key: key, Err: err, unavailable: unavailable}
}

// IsNotFound reports whether err signals a missing key.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var se *Error
	return errors.As(err, &se) && se.IsNotFound()
}

// IsUnavailable reports whether err signals an unreachable backend.
func IsUnavailable(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.IsUnavailable()
}
