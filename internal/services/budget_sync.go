package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"budgetsync/internal/core"
	"budgetsync/internal/log"
	"budgetsync/internal/remote"
	"budgetsync/internal/storage"
)

// BudgetSyncOrchestrator reconciles local budgets with the server.
type BudgetSyncOrchestrator struct {
	store  BudgetStore
	api    BudgetAPI
	auth   AuthGate
	exec   Executor
	logger *log.Logger
	locks  *scopeLocks
	now    func() time.Time
}

var _ BudgetLookup = (*BudgetSyncOrchestrator)(nil)

// NewBudgetSyncOrchestrator wires the orchestrator. A nil exec runs tasks
// inline and a nil logger discards output.
func NewBudgetSyncOrchestrator(store BudgetStore, api BudgetAPI, auth AuthGate, exec Executor, logger *log.Logger) *BudgetSyncOrchestrator {
	if exec == nil {
		exec = InlineExecutor{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetSyncOrchestrator{
		store:  store,
		api:    api,
		auth:   auth,
		exec:   exec,
		logger: logger.WithComponent(log.ComponentSync),
		locks:  newScopeLocks(),
		now:    time.Now,
	}
}

// SyncPendingBudgets pushes every unsynced budget that the server has not
// seen yet. Item failures are reported in the result and do not fail the call.
func (o *BudgetSyncOrchestrator) SyncPendingBudgets(ctx context.Context) (PushReport[core.Budget], error) {
	return runTask(ctx, o.exec, "budgets.push", func(ctx context.Context) (PushReport[core.Budget], error) {
		release, err := o.locks.acquire(ctx, budgetsScope)
		if err != nil {
			return PushReport[core.Budget]{}, err
		}
		defer release()
		return o.syncPending(ctx)
	})
}

// PullBudgetsFromServer merges the server budget list into the local store.
func (o *BudgetSyncOrchestrator) PullBudgetsFromServer(ctx context.Context) (PullReport, error) {
	return runTask(ctx, o.exec, "budgets.pull", func(ctx context.Context) (PullReport, error) {
		release, err := o.locks.acquire(ctx, budgetsScope)
		if err != nil {
			return PullReport{}, err
		}
		defer release()
		return o.pull(ctx)
	})
}

// PerformFullSync pushes then pulls. A failed push skips the pull.
func (o *BudgetSyncOrchestrator) PerformFullSync(ctx context.Context) (SyncReport[core.Budget], error) {
	return runTask(ctx, o.exec, "budgets.full", func(ctx context.Context) (SyncReport[core.Budget], error) {
		var report SyncReport[core.Budget]

		release, err := o.locks.acquire(ctx, budgetsScope)
		if err != nil {
			return report, err
		}
		defer release()

		if report.Push, err = o.syncPending(ctx); err != nil {
			return report, fmt.Errorf("push budgets: %w", err)
		}
		if report.Pull, err = o.pull(ctx); err != nil {
			return report, fmt.Errorf("pull budgets: %w", err)
		}
		return report, nil
	})
}

// ServerBudgetID returns the server id of a local budget.
func (o *BudgetSyncOrchestrator) ServerBudgetID(ctx context.Context, localBudgetID int64) (int64, error) {
	b, err := o.store.GetBudget(ctx, localBudgetID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("budget %d: %w", localBudgetID, ErrLocalBudgetNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("load budget %d: %w", localBudgetID, err)
	}
	if !b.HasServerID() {
		return 0, fmt.Errorf("budget %d: %w", localBudgetID, ErrBudgetNotSynced)
	}
	return *b.ServerID, nil
}

// LocalBudgetID finds the local budget carrying serverBudgetID by scanning
// the cached budget list.
func (o *BudgetSyncOrchestrator) LocalBudgetID(ctx context.Context, serverBudgetID int64) (int64, error) {
	budgets, err := o.store.Budgets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list local budgets: %w", err)
	}
	for _, b := range budgets {
		if b.HasServerID() && *b.ServerID == serverBudgetID {
			return b.ID, nil
		}
	}
	return 0, fmt.Errorf("server budget %d: %w", serverBudgetID, ErrLocalBudgetNotFound)
}

func (o *BudgetSyncOrchestrator) syncPending(ctx context.Context) (PushReport[core.Budget], error) {
	var report PushReport[core.Budget]

	if !o.auth.Authenticated(ctx) {
		return report, ErrUnauthenticated
	}

	// The list call doubles as a connectivity probe before any create.
	if _, err := o.api.ListBudgets(ctx); err != nil {
		return report, transportError("probe budgets", err)
	}

	pending, err := o.store.UnsyncedBudgets(ctx)
	if err != nil {
		return report, fmt.Errorf("read unsynced budgets: %w", err)
	}

	for _, b := range pending {
		report.Items = append(report.Items, o.pushBudget(ctx, b))
	}

	fields := log.NewFields().
		WithOperation(log.OpPush).
		WithBatch(report.Succeeded(), report.Failed(), report.Skipped())
	o.logger.InfoContext(ctx, "Budget push completed", fields.ToSlice()...)

	return report, nil
}

func (o *BudgetSyncOrchestrator) pushBudget(ctx context.Context, b core.Budget) ItemResult[core.Budget] {
	res := ItemResult[core.Budget]{LocalID: b.ID, Item: b}

	// There is no update endpoint for budgets: an edited budget that already
	// has a server id waits for the pull to settle it.
	if b.HasServerID() {
		res.Skipped = true
		recordItem(ctx, KindBudget, "skipped")
		o.logger.DebugContext(ctx, "Skipping budget already known to server",
			log.NewFields().WithBudget(b.ID, b.ServerID).ToSlice()...)
		return res
	}

	created, err := o.api.CreateBudget(ctx, remote.NewCreateBudgetRequest(b))
	if err != nil {
		res.Err = &ItemSyncError{Kind: KindBudget, LocalID: b.ID, Op: log.OpCreate, Err: err}
		recordItem(ctx, KindBudget, "failed")
		o.logger.WarnContext(ctx, "Budget push failed",
			log.NewFields().WithBudget(b.ID, nil).WithError(err).ToSlice()...)
		return res
	}

	b.ServerID = core.Int64Ptr(created.ID)
	b.IsSynced = true
	b.LastSyncedAt = core.TimePtr(o.now())
	if err := o.store.UpdateBudget(ctx, b); err != nil {
		res.Err = &ItemSyncError{Kind: KindBudget, LocalID: b.ID, Op: "store", Err: err}
		recordItem(ctx, KindBudget, "failed")
		o.logger.ErrorContext(ctx, "Budget created remotely but local update failed",
			log.NewFields().WithBudget(b.ID, b.ServerID).WithError(err).ToSlice()...)
		return res
	}

	res.Item = b
	recordItem(ctx, KindBudget, "synced")
	o.logger.DebugContext(ctx, "Budget pushed",
		log.NewFields().WithBudget(b.ID, b.ServerID).ToSlice()...)
	return res
}

func (o *BudgetSyncOrchestrator) pull(ctx context.Context) (PullReport, error) {
	var report PullReport

	if !o.auth.Authenticated(ctx) {
		return report, ErrUnauthenticated
	}

	serverBudgets, err := o.api.ListBudgets(ctx)
	if err != nil {
		return report, transportError("list budgets", err)
	}

	local, err := o.store.Budgets(ctx)
	if err != nil {
		return report, fmt.Errorf("list local budgets: %w", err)
	}
	byServerID := make(map[int64]core.Budget, len(local))
	for _, b := range local {
		if b.HasServerID() {
			byServerID[*b.ServerID] = b
		}
	}

	now := o.now()
	for _, sb := range serverBudgets {
		if strings.TrimSpace(sb.Name) == "" {
			report.Skipped++
			o.logger.WarnContext(ctx, "Skipping server budget without name",
				log.NewFields().WithBudget(0, core.Int64Ptr(sb.ID)).ToSlice()...)
			continue
		}

		if existing, ok := byServerID[sb.ID]; ok {
			existing.Name = sb.Name
			existing.Amount = sb.Amount
			existing.IsSynced = true
			existing.LastSyncedAt = core.TimePtr(now)
			if err := o.store.UpdateBudget(ctx, existing); err != nil {
				return report, fmt.Errorf("update local budget %d: %w", existing.ID, err)
			}
			byServerID[sb.ID] = existing
			report.Updated++
			continue
		}

		created, err := o.store.CreateBudget(ctx, core.Budget{
			ServerID:     core.Int64Ptr(sb.ID),
			IsSynced:     true,
			LastSyncedAt: core.TimePtr(now),
			Name:         sb.Name,
			Amount:       sb.Amount,
			Date:         now,
		})
		if err != nil {
			return report, fmt.Errorf("create local budget for server budget %d: %w", sb.ID, err)
		}
		byServerID[sb.ID] = created
		report.Created++
	}

	recordMerge(ctx, KindBudget, report)
	o.logger.InfoContext(ctx, "Budget pull completed",
		log.NewFields().WithOperation(log.OpPull).WithMerge(report.Created, report.Updated).ToSlice()...)

	return report, nil
}
