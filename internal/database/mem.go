package database

import (
	"context"
	"sort"
	"sync"

	"taxgateway/internal/models"
)

// DefaultMaxRecords caps a history store built with a non-positive limit.
const DefaultMaxRecords = 10000

// MemStore is the in-process history used when no Redis address is
// configured. Records stay ordered by RequestedAt and at most maxRecords are
// kept; the oldest go first.
type MemStore struct {
	mu         sync.RWMutex
	records    []models.CalculationRecord
	maxRecords int
}

func NewMemStore(maxRecords int) *MemStore {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &MemStore{maxRecords: maxRecords}
}

func (s *MemStore) Add(_ context.Context, rec models.CalculationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := rec.RequestedAt.UnixNano()
	i := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].RequestedAt.UnixNano() > ts
	})
	s.records = append(s.records, models.CalculationRecord{})
	copy(s.records[i+1:], s.records[i:])
	s.records[i] = rec

	if over := len(s.records) - s.maxRecords; over > 0 {
		n := copy(s.records, s.records[over:])
		clear(s.records[n:])
		s.records = s.records[:n]
	}
	return nil
}

func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemStore) RangeQuery(_ context.Context, fromTs, toTs int64) ([]models.CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CalculationRecord
	for _, rec := range s.records {
		timestamp := rec.RequestedAt.UnixNano()

		if timestamp >= fromTs && timestamp <= toTs {
			out = append(out, rec)
		} else if timestamp > toTs {
			break
		}
	}
	return out, nil
}

func (s *MemStore) Ping(context.Context) error {
	return nil
}

func (s *MemStore) Close() error {
	return nil
}
