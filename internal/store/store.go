// Package store holds the latest reading per metric category as one
// versioned snapshot. Writers are the samplers; the reader is the frame loop.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/Guliveer/devdash/internal/models"
)

// Store is the snapshot store. The zero value is not usable; call New.
//
// Readers load an immutable *models.Snapshot through an atomic pointer and
// never block. Writers serialise on mu only for the time it takes to copy
// the fixed-size table, set one slot and publish the new pointer.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[models.Snapshot]
}

// New creates an empty store at version 0.
func New() *Store {
	s := &Store{}
	s.current.Store(&models.Snapshot{})
	return s
}

// Update replaces the reading for r.Category and increments the version.
// It always succeeds; a reading with an unknown category is dropped and
// the version is left unchanged.
func (s *Store) Update(r models.Reading) uint64 {
	if !r.Category.Valid() {
		return s.Version()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	next := &models.Snapshot{
		Version:  prev.Version + 1,
		Readings: prev.Readings,
	}
	next.Readings[r.Category] = r
	s.current.Store(next)
	return next.Version
}

// Read returns the current snapshot and its version. The snapshot is a copy;
// callers may keep it for as long as they like.
func (s *Store) Read() (models.Snapshot, uint64) {
	snap := s.current.Load()
	return *snap, snap.Version
}

// Version returns the current version without copying the snapshot.
func (s *Store) Version() uint64 {
	return s.current.Load().Version
}

// Latest returns the reading for category c, if one was ever written.
func (s *Store) Latest(c models.Category) (models.Reading, bool) {
	return s.current.Load().Get(c)
}
