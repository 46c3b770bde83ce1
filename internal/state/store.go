package state

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/five82/manavault/internal/market"
)

// Snapshot is the storefront data visible to the UI.
type Snapshot struct {
	Catalog             []market.Card
	Listings            []market.Listing
	Sets                []string
	Version             uint64
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive refresh failures
}

// IsOffline returns true when the backend has been unreachable for multiple
// refreshes.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot. Every replacement
// bumps Version; slices are swapped whole, never patched in place.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update publishes the result of a full refresh. When err is non-nil the
// previous data is kept but the error is recorded for visibility.
func (s *Store) Update(catalog []market.Card, listings []market.Listing, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.recordFailureLocked(err)
		return
	}

	s.snapshot.Catalog = slices.Clone(catalog)
	s.snapshot.Listings = slices.Clone(listings)
	s.snapshot.Version++
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// SetCatalog replaces the catalog.
func (s *Store) SetCatalog(cards []market.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Catalog = slices.Clone(cards)
	s.snapshot.Version++
}

// SetListings replaces the open listings.
func (s *Store) SetListings(listings []market.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Listings = slices.Clone(listings)
	s.snapshot.Version++
}

// SetSets replaces the set names.
func (s *Store) SetSets(sets []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Sets = slices.Clone(sets)
	s.snapshot.Version++
}

// RecordFailure notes a failed refresh without touching the data.
func (s *Store) RecordFailure(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordFailureLocked(err)
}

func (s *Store) recordFailureLocked(err error) {
	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Catalog = slices.Clone(s.snapshot.Catalog)
	snap.Listings = slices.Clone(s.snapshot.Listings)
	snap.Sets = slices.Clone(s.snapshot.Sets)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
