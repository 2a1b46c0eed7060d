package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a map-backed Store with the same CAS semantics as the bbolt
// implementation. Used in tests and as a fallback when no data path is set.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.records[rec.Code]
	if !ok {
		if rec.Version != 1 {
			return ErrVersionConflict
		}
	} else if rec.Version != prev.Version+1 {
		return ErrVersionConflict
	}
	// copy the payload so callers can't mutate stored state
	buf := make([]byte, len(rec.Payload))
	copy(buf, rec.Payload)
	rec.Payload = buf
	m.records[rec.Code] = rec
	return nil
}

func (m *Memory) Load(_ context.Context, code string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[code]
	if !ok {
		return Record{}, ErrNotFound
	}
	buf := make([]byte, len(rec.Payload))
	copy(buf, rec.Payload)
	rec.Payload = buf
	return rec, nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[code]; !ok {
		return ErrNotFound
	}
	delete(m.records, code)
	return nil
}

func (m *Memory) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for code, rec := range m.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(m.records, code)
			removed++
		}
	}
	return removed, nil
}
