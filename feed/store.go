package feed

import (
	"sync"
	"time"

	"assetwatch/asset"
)

// Store holds the latest decoded snapshot. Replacement is atomic under the
// lock; readers get the immutable snapshot value and per-key lookups, so a
// render in progress keeps a consistent view while a newer poll lands.
type Store struct {
	mu        sync.RWMutex
	snapshot  *Snapshot
	byKey     map[string]int
	replaced  uint64
	updatedAt time.Time
}

// NewStore returns an empty store; Latest is nil until the first Replace.
func NewStore() *Store {
	return &Store{byKey: make(map[string]int)}
}

// Replace installs a new snapshot wholesale. Older snapshots are simply
// discarded; there is no merging.
func (s *Store) Replace(snap *Snapshot, now time.Time) {
	if s == nil || snap == nil {
		return
	}
	index := make(map[string]int, len(snap.Entries))
	for i, entry := range snap.Entries {
		index[entry.Definition.Key.String()] = i
	}
	s.mu.Lock()
	s.snapshot = snap
	s.byKey = index
	s.replaced++
	s.updatedAt = now
	s.mu.Unlock()
}

// Latest returns the current snapshot, or nil before the first poll.
func (s *Store) Latest() *Snapshot {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Entry looks up one asset by key. The bool reports whether the asset exists
// in the current snapshot at all; a present asset may still carry nil live
// state (not yet resolved).
func (s *Store) Entry(key asset.Key) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return Entry{}, false
	}
	idx, ok := s.byKey[key.String()]
	if !ok {
		return Entry{}, false
	}
	return s.snapshot.Entries[idx], true
}

// UpdatedAt reports when the current snapshot was installed.
func (s *Store) UpdatedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Generation counts snapshot replacements since startup.
func (s *Store) Generation() uint64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replaced
}
