// Package store holds the per-date snapshots, the timeline index, and the
// latest reference overlays. One writer (the backfill pipeline) and many
// readers (HTTP handlers) share it.
package store

import (
	"maps"
	"slices"
	"sync"

	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/couchcryptid/casemap-service/internal/timeline"
)

// Store is an in-memory snapshot store. Snapshots are immutable once
// stored; Put swaps in a whole new snapshot for a date.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]domain.DaySnapshot
	index     *timeline.Index
	overlay   []domain.OverlayEntry
	headline  domain.Headline
	hasHead   bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		snapshots: make(map[string]domain.DaySnapshot),
		index:     timeline.New(),
	}
}

// Put stores snap under its date and indexes the date. A snapshot equal to
// the one already stored leaves the store untouched.
func (s *Store) Put(snap domain.DaySnapshot) domain.PutOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.snapshots[snap.Date]
	if exists && prev.Equal(snap) {
		return domain.SnapshotUnchanged
	}
	s.snapshots[snap.Date] = snap
	s.index.Insert(snap.Date)
	if exists {
		return domain.SnapshotReplaced
	}
	return domain.SnapshotAdded
}

// Snapshot returns a copy of the snapshot for date.
func (s *Store) Snapshot(date string) (domain.DaySnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[date]
	if !ok {
		return domain.DaySnapshot{}, false
	}
	return snap.Clone(), true
}

// Dates returns the stored dates in ascending order.
func (s *Store) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Dates()
}

// Latest returns the most recent stored date.
func (s *Store) Latest() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Latest()
}

// DateAt returns the date at timeline position i, oldest first.
func (s *Store) DateAt(i int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= s.index.Len() {
		return "", false
	}
	return s.index.At(i), true
}

// Position returns the timeline position of date.
func (s *Store) Position(date string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index.IndexOf(date)
	return i, i >= 0
}

// IsLatest reports whether date is the most recent stored date.
func (s *Store) IsLatest(date string) bool {
	latest, ok := s.Latest()
	return ok && latest == date
}

// CountryBuckets returns a copy of the country tier for date.
func (s *Store) CountryBuckets(date string) (map[string]domain.AggregateBucket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[date]
	if !ok {
		return nil, false
	}
	return maps.Clone(snap.Country), true
}

// ProvinceBuckets returns a copy of the province tier for date.
func (s *Store) ProvinceBuckets(date string) (map[string]domain.AggregateBucket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[date]
	if !ok {
		return nil, false
	}
	return maps.Clone(snap.Province), true
}

// History returns the counts recorded for p across all stored dates, in
// ascending date order. Dates on which p has no feature are omitted.
func (s *Store) History(p domain.PointID) []domain.DatedCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DatedCount
	for _, date := range s.index.Dates() {
		for _, f := range s.snapshots[date].Atomic {
			if f.Point == p {
				out = append(out, domain.DatedCount{Date: date, Total: f.Total, New: f.New})
				break
			}
		}
	}
	return out
}

// SetOverlay replaces the country overlay.
func (s *Store) SetOverlay(entries []domain.OverlayEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay = slices.Clone(entries)
}

// OverlayEntries returns a copy of the country overlay.
func (s *Store) OverlayEntries() []domain.OverlayEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.overlay)
}

// SetHeadline replaces the global headline count.
func (s *Store) SetHeadline(h domain.Headline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headline = h
	s.hasHead = true
}

// Headline returns the global headline count, if one was loaded.
func (s *Store) Headline() (domain.Headline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headline, s.hasHead
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
