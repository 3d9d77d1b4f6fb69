package sheets

import (
	"context"

	"budgetsync/internal/core"
)

// SnapshotWriter mirrors the local budget data into an external sheet.
// Each call replaces the previous snapshot.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, budgets []core.Budget, entriesByBudget map[int64][]core.BudgetEntry) error
}

// Header is the first row of every snapshot.
var Header = []any{
	"Budget ID", "Budget Server ID", "Budget", "Budget Amount",
	"Entry ID", "Entry Server ID", "Type", "Amount", "Category", "Description", "Synced",
}

// Rows flattens budgets and their entries into sheet rows, header first.
// A budget with no entries still gets one row so it shows up in the mirror.
func Rows(budgets []core.Budget, entriesByBudget map[int64][]core.BudgetEntry) [][]any {
	rows := [][]any{Header}
	for _, b := range budgets {
		base := []any{b.ID, optional(b.ServerID), b.Name, b.Amount}
		entries := entriesByBudget[b.ID]
		if len(entries) == 0 {
			rows = append(rows, append(base, "", "", "", "", "", "", b.IsSynced))
			continue
		}
		for _, e := range entries {
			row := append([]any{}, base...)
			row = append(row, e.ID, optional(e.ServerID), string(e.Type), e.Amount, e.Category, e.Description, b.IsSynced && e.IsSynced)
			rows = append(rows, row)
		}
	}
	return rows
}

func optional(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}
