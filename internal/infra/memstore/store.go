// Package memstore is an in-memory TransactionStore. It is safe for
// concurrent use; data is lost on restart.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/port"
)

// Store keeps records keyed by id and hands out copies only.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.TransactionRecord
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]domain.TransactionRecord)}
}

func (s *Store) Get(_ context.Context, id string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	c := rec.Clone()
	return &c, nil
}

func (s *Store) List(_ context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.TransactionRecord, 0, len(s.records))
	for _, rec := range s.records {
		if filter.Matches(rec) {
			result = append(result, rec.Clone())
		}
	}
	SortRecords(result)
	return result, nil
}

// Put writes the whole batch under one lock.
func (s *Store) Put(ctx context.Context, records ...domain.TransactionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, rec := range records {
		if rec.ID == "" {
			return &domain.ErrValidation{Field: "id", Message: "required"}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		s.records[rec.ID] = rec.Clone()
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// SortRecords orders records by date, then id.
func SortRecords(records []domain.TransactionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].ID < records[j].ID
	})
}

// Ensure Store implements the TransactionStore port.
var _ port.TransactionStore = (*Store)(nil)
