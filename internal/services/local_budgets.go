package services

import (
	"context"
	"fmt"

	"budgetsync/internal/core"
)

// LocalBudgets is the write path used by the app for user edits. Every save
// leaves the record unsynced so the next push picks it up. Server ids and
// provenance are never touched here.
type LocalBudgets struct {
	budgets BudgetStore
	entries EntryStore
}

func NewLocalBudgets(budgets BudgetStore, entries EntryStore) *LocalBudgets {
	return &LocalBudgets{budgets: budgets, entries: entries}
}

// SaveBudget creates b when it has no id, otherwise overwrites the business
// fields of the stored budget.
func (l *LocalBudgets) SaveBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == 0 {
		return l.budgets.CreateBudget(ctx, core.Budget{
			Name:   b.Name,
			Amount: b.Amount,
			Date:   b.Date,
		})
	}

	stored, err := l.budgets.GetBudget(ctx, b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("load budget %d: %w", b.ID, err)
	}
	stored.Name = b.Name
	stored.Amount = b.Amount
	stored.Date = b.Date
	stored.IsSynced = false
	if err := l.budgets.UpdateBudget(ctx, stored); err != nil {
		return core.Budget{}, err
	}
	return stored, nil
}

// SaveEntry creates e when it has no id, otherwise overwrites the business
// fields of the stored entry.
func (l *LocalBudgets) SaveEntry(ctx context.Context, e core.BudgetEntry) (core.BudgetEntry, error) {
	if e.ID == 0 {
		if _, err := l.budgets.GetBudget(ctx, e.BudgetID); err != nil {
			return core.BudgetEntry{}, fmt.Errorf("load budget %d: %w", e.BudgetID, err)
		}
		return l.entries.CreateEntry(ctx, core.BudgetEntry{
			BudgetID:    e.BudgetID,
			Amount:      e.Amount,
			Description: e.Description,
			Category:    e.Category,
			Type:        e.Type,
		})
	}

	stored, err := l.entries.GetEntry(ctx, e.ID)
	if err != nil {
		return core.BudgetEntry{}, fmt.Errorf("load entry %d: %w", e.ID, err)
	}
	stored.Amount = e.Amount
	stored.Description = e.Description
	stored.Category = e.Category
	stored.Type = e.Type
	stored.IsSynced = false
	if err := l.entries.UpdateEntry(ctx, stored); err != nil {
		return core.BudgetEntry{}, err
	}
	return stored, nil
}
