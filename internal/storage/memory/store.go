package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"budgetsync/internal/core"
	"budgetsync/internal/storage"
)

// Store keeps budgets and entries in process memory. Ids are assigned from
// monotonically increasing counters and never reused.
type Store struct {
	mu         sync.Mutex
	budgets    []core.Budget
	entries    []core.BudgetEntry
	nextBudget int64
	nextEntry  int64
}

func New() *Store {
	return &Store{nextBudget: 1, nextEntry: 1}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Budgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.budgets), nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(id)
	if i < 0 {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, storage.ErrNotFound)
	}
	return s.budgets[i], nil
}

func (s *Store) UnsyncedBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if !b.IsSynced {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ServerID != nil && s.budgetByServerID(*b.ServerID) >= 0 {
		return core.Budget{}, fmt.Errorf("create budget: server id %d already stored", *b.ServerID)
	}
	b.ID = s.nextBudget
	s.nextBudget++
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(b.ID)
	if i < 0 {
		return fmt.Errorf("update budget %d: %w", b.ID, storage.ErrNotFound)
	}
	if b.ServerID != nil {
		if j := s.budgetByServerID(*b.ServerID); j >= 0 && j != i {
			return fmt.Errorf("update budget %d: server id %d already stored", b.ID, *b.ServerID)
		}
	}
	s.budgets[i] = b
	return nil
}

func (s *Store) Entries(_ context.Context, budgetID int64) ([]core.BudgetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetEntry
	for _, e := range s.entries {
		if e.BudgetID == budgetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id int64) (core.BudgetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.entryIndex(id)
	if i < 0 {
		return core.BudgetEntry{}, fmt.Errorf("entry %d: %w", id, storage.ErrNotFound)
	}
	return s.entries[i], nil
}

// EntryByServerID finds an entry by its server id in any budget.
func (s *Store) EntryByServerID(_ context.Context, serverID int64) (core.BudgetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.entryByServerID(serverID)
	if i < 0 {
		return core.BudgetEntry{}, fmt.Errorf("entry with server id %d: %w", serverID, storage.ErrNotFound)
	}
	return s.entries[i], nil
}

func (s *Store) UnsyncedEntries(_ context.Context, budgetID int64) ([]core.BudgetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetEntry
	for _, e := range s.entries {
		if e.BudgetID == budgetID && !e.IsSynced {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) CreateEntry(_ context.Context, e core.BudgetEntry) (core.BudgetEntry, error) {
	if err := e.Validate(); err != nil {
		return core.BudgetEntry{}, fmt.Errorf("create entry: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budgetIndex(e.BudgetID) < 0 {
		return core.BudgetEntry{}, fmt.Errorf("create entry: budget %d: %w", e.BudgetID, storage.ErrNotFound)
	}
	if e.ServerID != nil && s.entryByServerID(*e.ServerID) >= 0 {
		return core.BudgetEntry{}, fmt.Errorf("create entry: server id %d already stored", *e.ServerID)
	}
	e.ID = s.nextEntry
	s.nextEntry++
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *Store) UpdateEntry(_ context.Context, e core.BudgetEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.entryIndex(e.ID)
	if i < 0 {
		return fmt.Errorf("update entry %d: %w", e.ID, storage.ErrNotFound)
	}
	if s.budgetIndex(e.BudgetID) < 0 {
		return fmt.Errorf("update entry %d: budget %d: %w", e.ID, e.BudgetID, storage.ErrNotFound)
	}
	if e.ServerID != nil {
		if j := s.entryByServerID(*e.ServerID); j >= 0 && j != i {
			return fmt.Errorf("update entry %d: server id %d already stored", e.ID, *e.ServerID)
		}
	}
	s.entries[i] = e
	return nil
}

func (s *Store) Stats(_ context.Context) (storage.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := storage.Stats{Budgets: len(s.budgets)}
	for _, b := range s.budgets {
		if !b.IsSynced {
			st.UnsyncedBudgets++
		}
	}
	for _, e := range s.entries {
		if !e.IsSynced {
			st.UnsyncedEntries++
		}
	}
	return st, nil
}

func (s *Store) budgetIndex(id int64) int {
	return slices.IndexFunc(s.budgets, func(b core.Budget) bool { return b.ID == id })
}

func (s *Store) budgetByServerID(serverID int64) int {
	return slices.IndexFunc(s.budgets, func(b core.Budget) bool {
		return b.ServerID != nil && *b.ServerID == serverID
	})
}

func (s *Store) entryIndex(id int64) int {
	return slices.IndexFunc(s.entries, func(e core.BudgetEntry) bool { return e.ID == id })
}

func (s *Store) entryByServerID(serverID int64) int {
	return slices.IndexFunc(s.entries, func(e core.BudgetEntry) bool {
		return e.ServerID != nil && *e.ServerID == serverID
	})
}
