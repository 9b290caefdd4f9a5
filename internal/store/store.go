package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store persists the last-known device snapshot between runs. The protocol
// core never touches it; only the driver writes here, and only presence
// flags for code slots, never PIN digits.
type Store interface {
	SaveSnapshot(snap *Snapshot) error
	GetSnapshot(nodeID uint8) (*Snapshot, error)
	DeleteSnapshot(nodeID uint8) error

	// UpdateSnapshot atomically reads, modifies, and saves a snapshot in a
	// single transaction. Returns ErrNotFound if none exists yet.
	UpdateSnapshot(nodeID uint8, fn func(snap *Snapshot) error) error

	Close() error
}
