// Package ids produces the opaque identifiers used for recipes and
// ingredient definitions.
package ids

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator returns a new identifier on every call.
type Generator interface {
	New() uuid.UUID
}

// Random generates version 4 (122 random bits) UUIDs. It is safe for
// concurrent use and never fails.
type Random struct{}

// New returns a fresh random UUID.
func (Random) New() uuid.UUID {
	return uuid.New()
}

// Sequence generates predictable identifiers (…0001, …0002, …) for tests.
type Sequence struct {
	n atomic.Uint64
}

// New returns the next identifier in the sequence.
func (s *Sequence) New() uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], s.n.Add(1))
	return id
}
