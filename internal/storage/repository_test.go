package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgetsync/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budgets.db"), WithCache(16, 0))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestBudgetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	created, err := repo.CreateBudget(ctx, core.Budget{Name: "Trip", Amount: 100, Date: date})
	if err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}
	if created.ID == 0 || created.ServerID != nil || created.IsSynced {
		t.Fatalf("unexpected created budget %+v", created)
	}

	synced := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	created.ServerID = core.Int64Ptr(77)
	created.IsSynced = true
	created.LastSyncedAt = &synced
	if err := repo.UpdateBudget(ctx, created); err != nil {
		t.Fatalf("UpdateBudget() error = %v", err)
	}

	got, err := repo.GetBudget(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if got.ServerIDValue() != 77 || !got.IsSynced || !got.LastSyncedAt.Equal(synced) || !got.Date.Equal(date) {
		t.Fatalf("GetBudget() = %+v", got)
	}
}

func TestBudgetsCacheInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.CreateBudget(ctx, core.Budget{Name: "A", Date: time.Now()}); err != nil {
		t.Fatal(err)
	}
	first, err := repo.Budgets(ctx)
	if err != nil || len(first) != 1 {
		t.Fatalf("Budgets() = %v, %v", first, err)
	}

	if _, err := repo.CreateBudget(ctx, core.Budget{Name: "B", Date: time.Now()}); err != nil {
		t.Fatal(err)
	}
	second, err := repo.Budgets(ctx)
	if err != nil || len(second) != 2 {
		t.Fatalf("Budgets() after create = %v, %v", second, err)
	}

	second[0].Name = "mutated"
	third, _ := repo.Budgets(ctx)
	if third[0].Name == "mutated" {
		t.Fatal("Budgets() must return a copy of the cached slice")
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a, _ := repo.CreateBudget(ctx, core.Budget{Name: "A", Date: time.Now()})
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, a.ID); err != nil {
		t.Fatal(err)
	}
	b, err := repo.CreateBudget(ctx, core.Budget{Name: "B", Date: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if b.ID <= a.ID {
		t.Fatalf("expected id greater than %d, got %d", a.ID, b.ID)
	}
}

func TestSyncedWithoutServerIDRejected(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateBudget(ctx, core.Budget{Name: "A", IsSynced: true, Date: time.Now()})
	if !errors.Is(err, core.ErrSyncedWithoutServerID) {
		t.Fatalf("expected ErrSyncedWithoutServerID, got %v", err)
	}
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO budgets (is_synced, name, amount, date) VALUES (1, 'x', 0, '2024-01-01T00:00:00Z')`); err == nil {
		t.Fatal("expected CHECK constraint to reject synced row without server id")
	}
}

func TestEntriesAndUnsynced(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	budget, _ := repo.CreateBudget(ctx, core.Budget{Name: "Home", ServerID: core.Int64Ptr(3), IsSynced: true, Date: time.Now()})

	pending, err := repo.CreateEntry(ctx, core.BudgetEntry{BudgetID: budget.ID, Amount: 12.5, Description: "milk", Type: core.Outcome})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}
	created := time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC)
	if _, err := repo.CreateEntry(ctx, core.BudgetEntry{
		BudgetID:       budget.ID,
		ServerID:       core.Int64Ptr(40),
		IsSynced:       true,
		Type:           core.Income,
		CreatedByEmail: "a@example.com",
		CreationDate:   &created,
	}); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	all, err := repo.Entries(ctx, budget.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("Entries() = %v, %v", all, err)
	}
	unsynced, err := repo.UnsyncedEntries(ctx, budget.ID)
	if err != nil || len(unsynced) != 1 || unsynced[0].ID != pending.ID {
		t.Fatalf("UnsyncedEntries() = %v, %v", unsynced, err)
	}

	pending.ServerID = core.Int64Ptr(41)
	pending.IsSynced = true
	if err := repo.UpdateEntry(ctx, pending); err != nil {
		t.Fatalf("UpdateEntry() error = %v", err)
	}
	all, _ = repo.Entries(ctx, budget.ID)
	for _, e := range all {
		if !e.IsSynced {
			t.Fatalf("stale cached entry %+v", e)
		}
	}

	st, err := repo.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Budgets != 1 || st.UnsyncedBudgets != 0 || st.UnsyncedEntries != 0 {
		t.Fatalf("Stats() = %+v", st)
	}
}

func TestGetMissingRecord(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetBudget(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetEntry(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEntryRequiresStoredBudget(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.CreateEntry(ctx, core.BudgetEntry{BudgetID: 999, ServerID: core.Int64Ptr(9), IsSynced: true, Type: core.Income}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("CreateEntry() under missing budget = %v, want ErrNotFound", err)
	}
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO budget_entries (budget_id, type) VALUES (999, 'income')`); err == nil {
		t.Fatal("expected foreign key to reject entry without a parent budget")
	}
	if orphans, _ := repo.Entries(ctx, 999); len(orphans) != 0 {
		t.Fatalf("entries stored under missing budget: %+v", orphans)
	}
}

func TestEntryByServerID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	budget, _ := repo.CreateBudget(ctx, core.Budget{Name: "Home", ServerID: core.Int64Ptr(3), IsSynced: true, Date: time.Now()})
	stored, err := repo.CreateEntry(ctx, core.BudgetEntry{BudgetID: budget.ID, ServerID: core.Int64Ptr(40), IsSynced: true, Type: core.Income})
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.EntryByServerID(ctx, 40)
	if err != nil || got.ID != stored.ID {
		t.Fatalf("EntryByServerID(40) = %+v, %v", got, err)
	}
	if _, err := repo.EntryByServerID(ctx, 41); !errors.Is(err, ErrNotFound) {
		t.Fatalf("EntryByServerID(41) = %v, want ErrNotFound", err)
	}
	if _, err := repo.CreateEntry(ctx, core.BudgetEntry{BudgetID: budget.ID, ServerID: core.Int64Ptr(40), IsSynced: true, Type: core.Outcome}); err == nil {
		t.Fatal("expected duplicate entry server id to be rejected")
	}
}
