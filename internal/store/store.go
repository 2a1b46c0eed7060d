// Package store persists session records keyed by their short code. The
// engine serializes writers per session; the version check here is the
// backstop that turns any lost-update race into a hard error instead of a
// silent overwrite.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for a code.
	ErrNotFound = errors.New("session record not found")
	// ErrVersionConflict is returned when Save's record version is not
	// exactly one ahead of the stored version.
	ErrVersionConflict = errors.New("session record version conflict")
)

// Record is one persisted session document. Payload is the JSON-encoded
// session; the store never inspects it.
type Record struct {
	Code      string    `json:"code"`
	Payload   []byte    `json:"payload"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store interface {
	// Save writes rec if rec.Version == stored version + 1 (a version of 1
	// creates the record). Otherwise it fails with ErrVersionConflict.
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, code string) (Record, error)
	Delete(ctx context.Context, code string) error
	// Sweep removes records not updated since the cutoff and reports how
	// many were deleted.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}
