// Package memory provides the in-process audit store used by tests and
// single-node deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"authgate/internal/audit"
)

// InMemoryStore keeps entries in append order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*audit.Entry
}

// New constructs an empty in-memory audit store.
func New() *InMemoryStore {
	return &InMemoryStore{}
}

// Append records an entry. Entries are immutable once stored.
func (s *InMemoryStore) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

// Query returns a filtered, paginated view, newest first.
func (s *InMemoryStore) Query(_ context.Context, filter audit.Filter) (*audit.Page, error) {
	filter.Normalize()

	s.mu.RLock()
	var matched []*audit.Entry
	for _, entry := range s.entries {
		if filter.Matches(entry) {
			cp := *entry
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (filter.Page - 1) * filter.PerPage
	if start > total {
		start = total
	}
	end := start + filter.PerPage
	if end > total {
		end = total
	}

	return &audit.Page{
		Entries: matched[start:end],
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}, nil
}

// PurgeOlderThan removes entries created before cutoff. This is the only
// path that ever deletes audit rows.
func (s *InMemoryStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	purged := 0
	for _, entry := range s.entries {
		if entry.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
	return purged, nil
}

// Len reports the number of stored entries (test helper).
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
