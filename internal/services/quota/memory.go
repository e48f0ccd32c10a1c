package quota

import (
	"context"
	"sync"

	"github.com/phambaophuc/alt-text-relay/internal/models"
)

type memoryEntry struct {
	mu      sync.Mutex
	record  models.QuotaRecord
	removed bool
}

// MemoryStore keeps records in process memory. Each identity has its own
// mutex so check-and-increment for one caller never blocks another.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

// lock returns the locked entry for identity, creating it when absent.
// Entries removed by Sweep between lookup and lock are skipped.
func (s *MemoryStore) lock(identity string) *memoryEntry {
	for {
		s.mu.Lock()
		e, ok := s.entries[identity]
		if !ok {
			e = &memoryEntry{record: models.QuotaRecord{Identity: identity}}
			s.entries[identity] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}

func (s *MemoryStore) Get(ctx context.Context, identity string) (models.QuotaRecord, bool, error) {
	s.mu.Lock()
	e, ok := s.entries[identity]
	s.mu.Unlock()
	if !ok {
		return models.QuotaRecord{}, false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || e.record.Day == "" {
		return models.QuotaRecord{}, false, nil
	}
	return e.record, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, record models.QuotaRecord) error {
	e := s.lock(record.Identity)
	defer e.mu.Unlock()
	e.record = record
	return nil
}

func (s *MemoryStore) IncrementWithReset(ctx context.Context, identity, day string, n, limit int) (models.QuotaRecord, bool, error) {
	e := s.lock(identity)
	defer e.mu.Unlock()

	if e.record.Day != day {
		e.record = models.QuotaRecord{Identity: identity, Day: day}
	}
	if e.record.Count+n > limit {
		return e.record, false, nil
	}
	e.record.Count += n
	return e.record, true, nil
}

func (s *MemoryStore) Sweep(ctx context.Context, today string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for identity, e := range s.entries {
		e.mu.Lock()
		if e.record.Day != today {
			e.removed = true
			delete(s.entries, identity)
			removed++
		}
		e.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of tracked identities.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error { return nil }
