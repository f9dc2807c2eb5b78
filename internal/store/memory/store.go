package memory

import (
	"context"
	"sort"
	"sync"

	"slotbook/internal/domain"
	"slotbook/internal/store"
)

// Store is a process-local DayStore used in development and tests.
type Store struct {
	mu   sync.Mutex
	days map[string]domain.DayDocument
}

func New() *Store {
	return &Store{days: make(map[string]domain.DayDocument)}
}

func (s *Store) Get(ctx context.Context, date string) (domain.DayDocument, error) {
	if err := ctx.Err(); err != nil {
		return domain.DayDocument{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := s.days[date]
	if !ok {
		return domain.DayDocument{}, store.ErrNotFound
	}
	return day.Clone(), nil
}

func (s *Store) Update(ctx context.Context, date string, fn store.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.days[date]
	if !ok {
		current = domain.EmptyDay()
	}
	next, err := fn(current.Clone())
	if err != nil {
		return err
	}
	s.days[date] = next.Normalized()
	return nil
}

func (s *Store) ListDates(ctx context.Context, start, end string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.days))
	for date := range s.days {
		if date < start || date > end {
			continue
		}
		out = append(out, date)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
