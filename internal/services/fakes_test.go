package services

import (
	"context"
	"sync"
	"time"

	"budgetsync/internal/core"
	"budgetsync/internal/remote"
	"budgetsync/internal/storage/memory"
)

type fakeAuth struct{ ok bool }

func (f fakeAuth) Authenticated(context.Context) bool { return f.ok }

type fakeBudgetAPI struct {
	mu          sync.Mutex
	listCalls   int
	createCalls int

	ListBudgetsFunc  func(ctx context.Context) ([]remote.Budget, error)
	CreateBudgetFunc func(ctx context.Context, req remote.CreateBudgetRequest) (remote.Budget, error)
}

func (f *fakeBudgetAPI) ListBudgets(ctx context.Context) ([]remote.Budget, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.ListBudgetsFunc != nil {
		return f.ListBudgetsFunc(ctx)
	}
	return nil, nil
}

func (f *fakeBudgetAPI) CreateBudget(ctx context.Context, req remote.CreateBudgetRequest) (remote.Budget, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	if f.CreateBudgetFunc != nil {
		return f.CreateBudgetFunc(ctx, req)
	}
	return remote.Budget{}, nil
}

type fakeEntryAPI struct {
	mu          sync.Mutex
	listCalls   int
	createCalls int
	updateCalls int

	ListEntriesFunc func(ctx context.Context, budgetID int64) ([]remote.Entry, error)
	CreateEntryFunc func(ctx context.Context, budgetID int64, req remote.CreateEntryRequest) (remote.Entry, error)
	UpdateEntryFunc func(ctx context.Context, budgetID, entryID int64, req remote.UpdateEntryRequest) (remote.Entry, error)
}

func (f *fakeEntryAPI) ListEntries(ctx context.Context, budgetID int64) ([]remote.Entry, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.ListEntriesFunc != nil {
		return f.ListEntriesFunc(ctx, budgetID)
	}
	return nil, nil
}

func (f *fakeEntryAPI) CreateEntry(ctx context.Context, budgetID int64, req remote.CreateEntryRequest) (remote.Entry, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	if f.CreateEntryFunc != nil {
		return f.CreateEntryFunc(ctx, budgetID, req)
	}
	return remote.Entry{}, nil
}

func (f *fakeEntryAPI) UpdateEntry(ctx context.Context, budgetID, entryID int64, req remote.UpdateEntryRequest) (remote.Entry, error) {
	f.mu.Lock()
	f.updateCalls++
	f.mu.Unlock()
	if f.UpdateEntryFunc != nil {
		return f.UpdateEntryFunc(ctx, budgetID, entryID, req)
	}
	return remote.Entry{}, nil
}

func (f *fakeEntryAPI) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls + f.createCalls + f.updateCalls
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store      *memory.Store
	budgetAPI  *fakeBudgetAPI
	entryAPI   *fakeEntryAPI
	budgets    *BudgetSyncOrchestrator
	entries    *BudgetEntrySyncOrchestrator
	localEdits *LocalBudgets
}

func newFixture(authenticated bool) *fixture {
	store := memory.New()
	budgetAPI := &fakeBudgetAPI{}
	entryAPI := &fakeEntryAPI{}
	auth := fakeAuth{ok: authenticated}

	budgets := NewBudgetSyncOrchestrator(store, budgetAPI, auth, InlineExecutor{}, nil)
	budgets.now = func() time.Time { return fixedNow }
	entries := NewBudgetEntrySyncOrchestrator(store, entryAPI, auth, budgets, InlineExecutor{}, nil)

	return &fixture{
		store:      store,
		budgetAPI:  budgetAPI,
		entryAPI:   entryAPI,
		budgets:    budgets,
		entries:    entries,
		localEdits: NewLocalBudgets(store, store),
	}
}

func (f *fixture) mustBudget(b core.Budget) core.Budget {
	created, err := f.store.CreateBudget(context.Background(), b)
	if err != nil {
		panic(err)
	}
	return created
}

func (f *fixture) mustEntry(e core.BudgetEntry) core.BudgetEntry {
	created, err := f.store.CreateEntry(context.Background(), e)
	if err != nil {
		panic(err)
	}
	return created
}
