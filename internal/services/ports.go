package services

import (
	"context"

	"budgetsync/internal/core"
	"budgetsync/internal/remote"
)

// Collaborators of the sync orchestrators.
type (
	BudgetStore interface {
		Budgets(ctx context.Context) ([]core.Budget, error)
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
		UnsyncedBudgets(ctx context.Context) ([]core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
	}

	EntryStore interface {
		Entries(ctx context.Context, budgetID int64) ([]core.BudgetEntry, error)
		GetEntry(ctx context.Context, id int64) (core.BudgetEntry, error)
		EntryByServerID(ctx context.Context, serverID int64) (core.BudgetEntry, error)
		UnsyncedEntries(ctx context.Context, budgetID int64) ([]core.BudgetEntry, error)
		CreateEntry(ctx context.Context, e core.BudgetEntry) (core.BudgetEntry, error)
		UpdateEntry(ctx context.Context, e core.BudgetEntry) error
	}

	BudgetAPI interface {
		ListBudgets(ctx context.Context) ([]remote.Budget, error)
		CreateBudget(ctx context.Context, req remote.CreateBudgetRequest) (remote.Budget, error)
	}

	// EntryAPI addresses budgets by server id.
	EntryAPI interface {
		ListEntries(ctx context.Context, budgetID int64) ([]remote.Entry, error)
		CreateEntry(ctx context.Context, budgetID int64, req remote.CreateEntryRequest) (remote.Entry, error)
		UpdateEntry(ctx context.Context, budgetID, entryID int64, req remote.UpdateEntryRequest) (remote.Entry, error)
	}

	AuthGate interface {
		Authenticated(ctx context.Context) bool
	}

	// BudgetLookup maps between local and server budget ids.
	BudgetLookup interface {
		ServerBudgetID(ctx context.Context, localBudgetID int64) (int64, error)
		LocalBudgetID(ctx context.Context, serverBudgetID int64) (int64, error)
	}
)
