// Package apperrors defines the error taxonomy shared by the stores, the
// composition service and the HTTP boundary.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrWrite marks any storage write fault (connectivity, constraint, timeout).
	ErrWrite = errors.New("write failed")
	// ErrRead marks any storage read fault.
	ErrRead = errors.New("read failed")
	// ErrNotFound marks an entity that was assumed present but is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an expected recipe version no longer matches.
	ErrConflict = errors.New("version conflict")
	// ErrInvalid marks input rejected before any storage call was made.
	ErrInvalid = errors.New("invalid input")
)

// Write wraps a storage fault raised while performing op as a write error.
func Write(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrWrite, err)
}

// Read wraps a storage fault raised while performing op as a read error.
func Read(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrRead, err)
}

// NotFound reports that the entity kind identified by id does not exist.
func NotFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}

// Invalid reports rejected input.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
