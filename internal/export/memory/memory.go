package memory

import (
	"context"
	"fmt"
	"sync"

	"ledgerbook/internal/export"
)

// Store is an in-memory StatementWriter used in tests and local runs
// without Google credentials.
type Store struct {
	mu    sync.Mutex
	items []export.Entry
}

var _ export.StatementWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e export.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []export.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Entry(nil), s.items...)
}
