package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"budgetsync/internal/amqp"
	"budgetsync/internal/core"
	"budgetsync/internal/services"
	sheetsmem "budgetsync/internal/sheets/memory"
	"budgetsync/internal/storage/memory"
)

type fakeBudgetSyncer struct {
	FullSyncFunc func(ctx context.Context) (services.SyncReport[core.Budget], error)
	pushCalls    int
	fullCalls    int
}

func (f *fakeBudgetSyncer) SyncPendingBudgets(context.Context) (services.PushReport[core.Budget], error) {
	f.pushCalls++
	return services.PushReport[core.Budget]{}, nil
}

func (f *fakeBudgetSyncer) PerformFullSync(ctx context.Context) (services.SyncReport[core.Budget], error) {
	f.fullCalls++
	if f.FullSyncFunc != nil {
		return f.FullSyncFunc(ctx)
	}
	return services.SyncReport[core.Budget]{}, nil
}

type fakeEntrySyncer struct {
	FullSyncFunc func(ctx context.Context, localBudgetID, serverBudgetID int64) (services.SyncReport[core.BudgetEntry], error)
	pushed       []int64
	synced       []int64
}

func (f *fakeEntrySyncer) SyncPendingEntries(_ context.Context, localBudgetID int64) (services.PushReport[core.BudgetEntry], error) {
	f.pushed = append(f.pushed, localBudgetID)
	return services.PushReport[core.BudgetEntry]{}, nil
}

func (f *fakeEntrySyncer) PerformFullSync(ctx context.Context, localBudgetID, serverBudgetID int64) (services.SyncReport[core.BudgetEntry], error) {
	f.synced = append(f.synced, localBudgetID)
	if f.FullSyncFunc != nil {
		return f.FullSyncFunc(ctx, localBudgetID, serverBudgetID)
	}
	return services.SyncReport[core.BudgetEntry]{}, nil
}

func seedStore(t *testing.T) (*memory.Store, []core.Budget) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	var out []core.Budget
	for _, b := range []core.Budget{
		{Name: "A", ServerID: core.Int64Ptr(10), IsSynced: true},
		{Name: "B"},
		{Name: "C", ServerID: core.Int64Ptr(30), IsSynced: true},
	} {
		created, err := store.CreateBudget(ctx, b)
		if err != nil {
			t.Fatalf("CreateBudget() error = %v", err)
		}
		out = append(out, created)
	}
	if _, err := store.CreateEntry(ctx, core.BudgetEntry{BudgetID: out[0].ID, Amount: 4, Type: core.Outcome}); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}
	return store, out
}

func TestSyncAll_FansOutToServerBudgets(t *testing.T) {
	store, budgets := seedStore(t)
	bs := &fakeBudgetSyncer{}
	es := &fakeEntrySyncer{}
	mirror := sheetsmem.New()
	w := NewSyncWorker(bs, es, store, mirror, nil)

	if err := w.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}

	if bs.fullCalls != 1 {
		t.Errorf("budget full sync calls = %d, want 1", bs.fullCalls)
	}
	want := []int64{budgets[0].ID, budgets[2].ID}
	if fmt.Sprint(es.synced) != fmt.Sprint(want) {
		t.Errorf("entry syncs = %v, want %v", es.synced, want)
	}
	// header + A's entry + B + C
	if rows := mirror.Rows(); len(rows) != 4 {
		t.Errorf("snapshot rows = %d, want 4", len(rows))
	}
}

func TestSyncAll_ContinuesAfterEntryFailure(t *testing.T) {
	store, budgets := seedStore(t)
	failure := errors.New("server down")
	es := &fakeEntrySyncer{
		FullSyncFunc: func(_ context.Context, localBudgetID, _ int64) (services.SyncReport[core.BudgetEntry], error) {
			if localBudgetID == budgets[0].ID {
				return services.SyncReport[core.BudgetEntry]{}, failure
			}
			return services.SyncReport[core.BudgetEntry]{}, nil
		},
	}
	mirror := sheetsmem.New()
	w := NewSyncWorker(&fakeBudgetSyncer{}, es, store, mirror, nil)

	err := w.SyncAll(context.Background())
	if !errors.Is(err, failure) {
		t.Fatalf("SyncAll() error = %v, want %v", err, failure)
	}
	if len(es.synced) != 2 {
		t.Errorf("entry syncs = %v, second budget should still run", es.synced)
	}
	if mirror.Writes() != 1 {
		t.Error("snapshot should still be written")
	}
}

func TestSyncAll_BudgetFailureStopsCycle(t *testing.T) {
	store, _ := seedStore(t)
	bs := &fakeBudgetSyncer{
		FullSyncFunc: func(context.Context) (services.SyncReport[core.Budget], error) {
			return services.SyncReport[core.Budget]{}, services.ErrUnauthenticated
		},
	}
	es := &fakeEntrySyncer{}
	w := NewSyncWorker(bs, es, store, nil, nil)

	if err := w.SyncAll(context.Background()); !errors.Is(err, services.ErrUnauthenticated) {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if len(es.synced) != 0 {
		t.Errorf("no entry sync expected, got %v", es.synced)
	}
}

func TestHandleSyncRequest(t *testing.T) {
	notSynced := fmt.Errorf("budget 2: %w", services.ErrBudgetNotSynced)
	transient := errors.New("timeout")

	tests := []struct {
		name         string
		msg          *amqp.SyncRequestMessage
		entryErr     error
		wantErr      bool
		wantBudgets  int
		wantEntryFor []int64
	}{
		{name: "budgets scope", msg: amqp.NewBudgetsSyncRequest("t"), wantBudgets: 1},
		{name: "entries scope", msg: amqp.NewEntriesSyncRequest(3, "t"), wantEntryFor: []int64{3}},
		{name: "entries of unsynced budget are dropped", msg: amqp.NewEntriesSyncRequest(2, "t"), entryErr: notSynced, wantEntryFor: []int64{2}},
		{name: "transient failure is retried", msg: amqp.NewEntriesSyncRequest(3, "t"), entryErr: transient, wantErr: true, wantEntryFor: []int64{3}},
		{name: "unknown scope", msg: &amqp.SyncRequestMessage{Scope: "expenses"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs := &fakeBudgetSyncer{}
			es := &fakeEntrySyncer{
				FullSyncFunc: func(context.Context, int64, int64) (services.SyncReport[core.BudgetEntry], error) {
					return services.SyncReport[core.BudgetEntry]{}, tt.entryErr
				},
			}
			w := NewSyncWorker(bs, es, memory.New(), nil, nil)

			err := w.HandleSyncRequest(context.Background(), tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleSyncRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bs.fullCalls != tt.wantBudgets {
				t.Errorf("budget full syncs = %d, want %d", bs.fullCalls, tt.wantBudgets)
			}
			if fmt.Sprint(es.synced) != fmt.Sprint(tt.wantEntryFor) {
				t.Errorf("entry syncs = %v, want %v", es.synced, tt.wantEntryFor)
			}
		})
	}
}

func TestStartupSyncCheck(t *testing.T) {
	t.Run("nothing pending", func(t *testing.T) {
		bs := &fakeBudgetSyncer{}
		w := NewSyncWorker(bs, &fakeEntrySyncer{}, memory.New(), nil, nil)
		if err := w.StartupSyncCheck(context.Background()); err != nil {
			t.Fatal(err)
		}
		if bs.pushCalls != 0 {
			t.Error("no push expected on an empty store")
		}
	})

	t.Run("pending records are pushed", func(t *testing.T) {
		store, budgets := seedStore(t)
		bs := &fakeBudgetSyncer{}
		es := &fakeEntrySyncer{}
		w := NewSyncWorker(bs, es, store, nil, nil)
		if err := w.StartupSyncCheck(context.Background()); err != nil {
			t.Fatal(err)
		}
		if bs.pushCalls != 1 {
			t.Errorf("budget push calls = %d", bs.pushCalls)
		}
		want := []int64{budgets[0].ID, budgets[2].ID}
		if fmt.Sprint(es.pushed) != fmt.Sprint(want) {
			t.Errorf("entry pushes = %v, want %v", es.pushed, want)
		}
	})
}
