package memory

import (
	"context"
	"sync"

	"budgetsync/internal/core"
	"budgetsync/internal/sheets"
)

var _ sheets.SnapshotWriter = (*Store)(nil)

// Store keeps the last snapshot written. Used by tests and when no
// spreadsheet is configured.
type Store struct {
	mu     sync.Mutex
	rows   [][]any
	writes int
}

func New() *Store {
	return &Store{}
}

func (s *Store) WriteSnapshot(ctx context.Context, budgets []core.Budget, entriesByBudget map[int64][]core.BudgetEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := sheets.Rows(budgets, entriesByBudget)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.writes++
	return nil
}

// Rows returns the last snapshot, header included.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.rows...)
}

// Writes returns how many snapshots were written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
