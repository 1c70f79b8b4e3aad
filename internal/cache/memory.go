package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. It is concurrency-safe and suited to tests and
// single-instance development; values are copied on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	groups  map[string]map[string]memberRef
}

type memberRef struct {
	trackedAt time.Time
	expiresAt *time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		groups:  make(map[string]map[string]memberRef),
	}
}

func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	if err := validateKey(entry.Key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.Key] = cloneEntry(entry)
	return nil
}

func (s *MemoryStore) InsertIfAbsent(_ context.Context, entry Entry, now time.Time) error {
	if err := validateKey(entry.Key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.entries[entry.Key]; ok && !current.Expired(now) {
		return ErrAlreadyExists
	}
	s.entries[entry.Key] = cloneEntry(entry)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	return cloneEntry(entry), true, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Stats(_ context.Context, now time.Time) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Total: int64(len(s.entries))}
	for _, entry := range s.entries {
		if entry.Expired(now) {
			stats.Expired++
		}
	}
	stats.Active = stats.Total - stats.Expired
	return stats, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Track(_ context.Context, group, key string, trackedAt time.Time, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.groups[group]
	if !ok {
		members = make(map[string]memberRef)
		s.groups[group] = members
	}
	members[key] = memberRef{trackedAt: trackedAt, expiresAt: cloneTime(expiresAt)}
	return nil
}

func (s *MemoryStore) Members(_ context.Context, group string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.groups[group]
	keys := make([]string, 0, len(members))
	for key := range members {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *MemoryStore) PruneOrphans(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-OrphanGracePeriod)
	var removed int64
	for group, members := range s.groups {
		for key, ref := range members {
			_, present := s.entries[key]
			orphaned := !present && !ref.trackedAt.After(cutoff)
			if orphaned || (ref.expiresAt != nil && !now.Before(*ref.expiresAt)) {
				delete(members, key)
				removed++
			}
		}
		if len(members) == 0 {
			delete(s.groups, group)
		}
	}
	return removed, nil
}

func cloneEntry(entry Entry) Entry {
	value := make([]byte, len(entry.Value))
	copy(value, entry.Value)
	return Entry{Key: entry.Key, Value: value, ExpiresAt: cloneTime(entry.ExpiresAt)}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
