// Package memory is an in-process RedirectStore.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-shorturl/internal/urlservice/domain"
	"go-shorturl/internal/urlservice/usecase"
)

// record guards one entry. Updates on the same code serialize on mu.
type record struct {
	mu      sync.Mutex
	entry   *domain.Entry
	deleted bool
}

// Store keeps entries in a map with one lock per code.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
}

var _ usecase.RedirectStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

func (s *Store) lookup(code string) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[code]
	return rec, ok
}

// FindByCode returns a snapshot taken under the entry lock.
func (s *Store) FindByCode(ctx context.Context, code string) (*domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, ok := s.lookup(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, code)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, code)
	}
	return rec.entry.Clone(), nil
}

func (s *Store) Insert(ctx context.Context, entry *domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[entry.Code]; exists {
		return fmt.Errorf("%w: %s", domain.ErrCodeConflict, entry.Code)
	}
	s.records[entry.Code] = &record{entry: entry.Clone()}
	return nil
}

// Update mutates a private copy and swaps it in only when mutate succeeds.
func (s *Store) Update(ctx context.Context, code string, mutate func(*domain.Entry) error) (*domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, ok := s.lookup(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, code)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, code)
	}

	working := rec.entry.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	rec.entry = working
	return working.Clone(), nil
}

func (s *Store) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for code, rec := range s.records {
		rec.mu.Lock()
		if rec.entry.ExpiresAt.Before(before) {
			rec.deleted = true
			delete(s.records, code)
			removed++
		}
		rec.mu.Unlock()
	}
	return removed, nil
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}
