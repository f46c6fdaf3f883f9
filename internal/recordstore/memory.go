package recordstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and local runs without a
// database. It applies the same equality-filter semantics as the Postgres
// implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]Row

	// FailInsert, when set, makes every Insert return the given error.
	FailInsert error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]Row)}
}

func (s *MemoryStore) Query(_ context.Context, table string, filter Filter) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Row
	for _, row := range s.tables[table] {
		if matches(row, filter) {
			out = append(out, cloneRow(row))
		}
	}
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, table string, row Row) (Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if s.FailInsert != nil {
		return nil, s.FailInsert
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneRow(row)
	s.tables[table] = append(s.tables[table], stored)
	return cloneRow(stored), nil
}

func (s *MemoryStore) Update(_ context.Context, table string, filter Filter, changes Row) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for _, row := range s.tables[table] {
		if matches(row, filter) {
			for col, v := range changes {
				row[col] = v
			}
			affected++
		}
	}
	return affected, nil
}

func (s *MemoryStore) Count(_ context.Context, table string, filter Filter) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, row := range s.tables[table] {
		if matches(row, filter) {
			count++
		}
	}
	return count, nil
}

func matches(row Row, filter Filter) bool {
	for col, want := range filter {
		if row[col] != want {
			return false
		}
	}
	return true
}

func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
