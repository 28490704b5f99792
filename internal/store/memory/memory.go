package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pocketflow/internal/core"
)

// Store keeps records in process memory. It is used for development and tests.
type Store struct {
	mu    sync.Mutex
	items map[string]core.FinancialRecord
	order []string
}

func New() *Store {
	return &Store{items: make(map[string]core.FinancialRecord)}
}

// NewWithRecords returns a store pre-populated with records. Records without
// an ID get one assigned.
func NewWithRecords(records ...core.FinancialRecord) *Store {
	s := New()
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.items[r.ID] = r.Normalized()
		s.order = append(s.order, r.ID)
	}
	return s
}

// ListByOwner returns a copy of the owner's records in insertion order.
func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]core.FinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FinancialRecord, 0)
	for _, id := range s.order {
		if r := s.items[id]; r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, r core.FinancialRecord) (core.FinancialRecord, error) {
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return core.FinancialRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.NewString()
	s.items[r.ID] = r
	s.order = append(s.order, r.ID)
	return r, nil
}

func (s *Store) Update(_ context.Context, id string, patch core.RecordPatch) (core.FinancialRecord, error) {
	patch = patch.Normalized()
	if err := patch.Validate(); err != nil {
		return core.FinancialRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return core.FinancialRecord{}, core.NewNotFoundError(id)
	}
	next := patch.Apply(cur)
	s.items[id] = next
	return next, nil
}

func (s *Store) Delete(_ context.Context, id string) (core.FinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return core.FinancialRecord{}, core.NewNotFoundError(id)
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return cur, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
