package services

import (
	"context"
	"errors"
	"fmt"

	"budgetsync/internal/core"
	"budgetsync/internal/log"
	"budgetsync/internal/remote"
	"budgetsync/internal/storage"
)

// BudgetEntrySyncOrchestrator reconciles the entries of one budget at a time.
type BudgetEntrySyncOrchestrator struct {
	store   EntryStore
	api     EntryAPI
	auth    AuthGate
	budgets BudgetLookup
	exec    Executor
	logger  *log.Logger
	locks   *scopeLocks
}

// NewBudgetEntrySyncOrchestrator wires the orchestrator. budgets is usually
// the BudgetSyncOrchestrator.
func NewBudgetEntrySyncOrchestrator(store EntryStore, api EntryAPI, auth AuthGate, budgets BudgetLookup, exec Executor, logger *log.Logger) *BudgetEntrySyncOrchestrator {
	if exec == nil {
		exec = InlineExecutor{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetEntrySyncOrchestrator{
		store:   store,
		api:     api,
		auth:    auth,
		budgets: budgets,
		exec:    exec,
		logger:  logger.WithComponent(log.ComponentSync),
		locks:   newScopeLocks(),
	}
}

// SyncPendingEntries pushes the unsynced entries of a local budget. The
// budget must already carry a server id.
func (o *BudgetEntrySyncOrchestrator) SyncPendingEntries(ctx context.Context, localBudgetID int64) (PushReport[core.BudgetEntry], error) {
	return runTask(ctx, o.exec, "entries.push", func(ctx context.Context) (PushReport[core.BudgetEntry], error) {
		release, err := o.locks.acquire(ctx, budgetScope(localBudgetID))
		if err != nil {
			return PushReport[core.BudgetEntry]{}, err
		}
		defer release()
		return o.syncPending(ctx, localBudgetID)
	})
}

// PullEntriesFromServer merges the server entries of serverBudgetID. A zero
// localBudgetID is resolved from the server id.
func (o *BudgetEntrySyncOrchestrator) PullEntriesFromServer(ctx context.Context, serverBudgetID, localBudgetID int64) (PullReport, error) {
	return runTask(ctx, o.exec, "entries.pull", func(ctx context.Context) (PullReport, error) {
		if !o.auth.Authenticated(ctx) {
			return PullReport{}, ErrUnauthenticated
		}
		localID, err := o.resolveLocal(ctx, serverBudgetID, localBudgetID)
		if err != nil {
			return PullReport{}, err
		}

		release, err := o.locks.acquire(ctx, budgetScope(localID))
		if err != nil {
			return PullReport{}, err
		}
		defer release()
		return o.pull(ctx, serverBudgetID, localID)
	})
}

// PerformFullSync pushes then pulls the entries of one budget. A zero
// serverBudgetID is looked up from the local budget.
func (o *BudgetEntrySyncOrchestrator) PerformFullSync(ctx context.Context, localBudgetID, serverBudgetID int64) (SyncReport[core.BudgetEntry], error) {
	return runTask(ctx, o.exec, "entries.full", func(ctx context.Context) (SyncReport[core.BudgetEntry], error) {
		var report SyncReport[core.BudgetEntry]

		release, err := o.locks.acquire(ctx, budgetScope(localBudgetID))
		if err != nil {
			return report, err
		}
		defer release()

		if report.Push, err = o.syncPending(ctx, localBudgetID); err != nil {
			return report, fmt.Errorf("push entries of budget %d: %w", localBudgetID, err)
		}
		if serverBudgetID == 0 {
			if serverBudgetID, err = o.budgets.ServerBudgetID(ctx, localBudgetID); err != nil {
				return report, err
			}
		}
		if report.Pull, err = o.pull(ctx, serverBudgetID, localBudgetID); err != nil {
			return report, fmt.Errorf("pull entries of budget %d: %w", localBudgetID, err)
		}
		return report, nil
	})
}

func (o *BudgetEntrySyncOrchestrator) resolveLocal(ctx context.Context, serverBudgetID, localBudgetID int64) (int64, error) {
	if localBudgetID == 0 {
		return o.budgets.LocalBudgetID(ctx, serverBudgetID)
	}
	// A supplied id must name a stored budget, synced or not.
	if _, err := o.budgets.ServerBudgetID(ctx, localBudgetID); err != nil && !errors.Is(err, ErrBudgetNotSynced) {
		return 0, err
	}
	return localBudgetID, nil
}

func (o *BudgetEntrySyncOrchestrator) syncPending(ctx context.Context, localBudgetID int64) (PushReport[core.BudgetEntry], error) {
	var report PushReport[core.BudgetEntry]

	if !o.auth.Authenticated(ctx) {
		return report, ErrUnauthenticated
	}

	serverBudgetID, err := o.budgets.ServerBudgetID(ctx, localBudgetID)
	if err != nil {
		return report, err
	}

	pending, err := o.store.UnsyncedEntries(ctx, localBudgetID)
	if err != nil {
		return report, fmt.Errorf("read unsynced entries of budget %d: %w", localBudgetID, err)
	}

	for _, e := range pending {
		report.Items = append(report.Items, o.pushEntry(ctx, serverBudgetID, e))
	}

	fields := log.NewFields().
		WithOperation(log.OpPush).
		WithBudget(localBudgetID, &serverBudgetID).
		WithBatch(report.Succeeded(), report.Failed(), report.Skipped())
	o.logger.InfoContext(ctx, "Entry push completed", fields.ToSlice()...)

	return report, nil
}

func (o *BudgetEntrySyncOrchestrator) pushEntry(ctx context.Context, serverBudgetID int64, e core.BudgetEntry) ItemResult[core.BudgetEntry] {
	res := ItemResult[core.BudgetEntry]{LocalID: e.ID, Item: e}

	var (
		resp remote.Entry
		err  error
		op   = log.OpCreate
	)
	if e.HasServerID() {
		op = log.OpUpdate
		resp, err = o.api.UpdateEntry(ctx, serverBudgetID, *e.ServerID, remote.NewUpdateEntryRequest(e, serverBudgetID))
		if errors.Is(err, remote.ErrNotFound) {
			o.logger.WarnContext(ctx, "Entry missing on server, creating it again",
				log.NewFields().WithEntry(e.ID, e.ServerID).ToSlice()...)
			op = log.OpCreate
			resp, err = o.api.CreateEntry(ctx, serverBudgetID, remote.NewCreateEntryRequest(e))
		}
	} else {
		resp, err = o.api.CreateEntry(ctx, serverBudgetID, remote.NewCreateEntryRequest(e))
	}
	if err != nil {
		res.Err = &ItemSyncError{Kind: KindEntry, LocalID: e.ID, Op: op, Err: err}
		recordItem(ctx, KindEntry, "failed")
		o.logger.WarnContext(ctx, "Entry push failed",
			log.NewFields().WithEntry(e.ID, e.ServerID).WithOperation(op).WithError(err).ToSlice()...)
		return res
	}

	e.ServerID = core.Int64Ptr(resp.ID)
	e.IsSynced = true
	applyProvenance(&e, resp)
	if err := o.store.UpdateEntry(ctx, e); err != nil {
		res.Err = &ItemSyncError{Kind: KindEntry, LocalID: e.ID, Op: "store", Err: err}
		recordItem(ctx, KindEntry, "failed")
		o.logger.ErrorContext(ctx, "Entry pushed but local update failed",
			log.NewFields().WithEntry(e.ID, e.ServerID).WithError(err).ToSlice()...)
		return res
	}

	res.Item = e
	recordItem(ctx, KindEntry, "synced")
	return res
}

func (o *BudgetEntrySyncOrchestrator) pull(ctx context.Context, serverBudgetID, localBudgetID int64) (PullReport, error) {
	var report PullReport

	if !o.auth.Authenticated(ctx) {
		return report, ErrUnauthenticated
	}

	serverEntries, err := o.api.ListEntries(ctx, serverBudgetID)
	if err != nil {
		return report, transportError(fmt.Sprintf("list entries of server budget %d", serverBudgetID), err)
	}

	local, err := o.store.Entries(ctx, localBudgetID)
	if err != nil {
		return report, fmt.Errorf("list local entries of budget %d: %w", localBudgetID, err)
	}
	byServerID := make(map[int64]core.BudgetEntry, len(local))
	for _, e := range local {
		if e.HasServerID() {
			byServerID[*e.ServerID] = e
		}
	}

	for _, se := range serverEntries {
		if !se.EntryType().IsValid() {
			report.Skipped++
			o.logger.WarnContext(ctx, "Skipping server entry with unknown type",
				log.NewFields().WithEntry(0, core.Int64Ptr(se.ID)).ToSlice()...)
			continue
		}

		if existing, ok := byServerID[se.ID]; ok {
			applyServerEntry(&existing, se)
			if err := o.store.UpdateEntry(ctx, existing); err != nil {
				return report, fmt.Errorf("update local entry %d: %w", existing.ID, err)
			}
			byServerID[se.ID] = existing
			report.Updated++
			continue
		}

		other, err := o.store.EntryByServerID(ctx, se.ID)
		if err == nil {
			report.Skipped++
			o.logger.WarnContext(ctx, "Skipping server entry stored under another budget",
				log.NewFields().WithEntry(other.ID, core.Int64Ptr(se.ID)).WithBudget(other.BudgetID, nil).ToSlice()...)
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return report, fmt.Errorf("look up server entry %d: %w", se.ID, err)
		}

		fresh := core.BudgetEntry{BudgetID: localBudgetID}
		applyServerEntry(&fresh, se)
		created, err := o.store.CreateEntry(ctx, fresh)
		if err != nil {
			return report, fmt.Errorf("create local entry for server entry %d: %w", se.ID, err)
		}
		byServerID[se.ID] = created
		report.Created++
	}

	recordMerge(ctx, KindEntry, report)
	o.logger.InfoContext(ctx, "Entry pull completed",
		log.NewFields().
			WithOperation(log.OpPull).
			WithBudget(localBudgetID, &serverBudgetID).
			WithMerge(report.Created, report.Updated).
			ToSlice()...)

	return report, nil
}

// applyServerEntry overwrites business fields and provenance with the
// server's values and marks the entry synced.
func applyServerEntry(e *core.BudgetEntry, se remote.Entry) {
	e.ServerID = core.Int64Ptr(se.ID)
	e.IsSynced = true
	e.Amount = se.Amount
	e.Description = se.Description
	e.Category = se.Category
	e.Type = se.EntryType()
	applyProvenance(e, se)
}

func applyProvenance(e *core.BudgetEntry, se remote.Entry) {
	e.CreatedByEmail = se.CreatedByEmail
	e.UpdatedByEmail = se.UpdatedByEmail
	e.CreationDate = se.CreationDate.Ptr()
	e.ModificationDate = se.ModificationDate.Ptr()
}
