package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetsync/internal/amqp"
	"budgetsync/internal/core"
	"budgetsync/internal/log"
	"budgetsync/internal/services"
	"budgetsync/internal/sheets"
	"budgetsync/internal/storage"
)

type (
	BudgetSyncer interface {
		SyncPendingBudgets(ctx context.Context) (services.PushReport[core.Budget], error)
		PerformFullSync(ctx context.Context) (services.SyncReport[core.Budget], error)
	}

	EntrySyncer interface {
		SyncPendingEntries(ctx context.Context, localBudgetID int64) (services.PushReport[core.BudgetEntry], error)
		PerformFullSync(ctx context.Context, localBudgetID, serverBudgetID int64) (services.SyncReport[core.BudgetEntry], error)
	}

	// Reader is the read side of the local store used for fan-out and the
	// sheet snapshot.
	Reader interface {
		Budgets(ctx context.Context) ([]core.Budget, error)
		Entries(ctx context.Context, budgetID int64) ([]core.BudgetEntry, error)
		Stats(ctx context.Context) (storage.Stats, error)
	}
)

// SyncWorker runs sync requests coming from AMQP and the periodic full sync.
type SyncWorker struct {
	budgets  BudgetSyncer
	entries  EntrySyncer
	store    Reader
	snapshot sheets.SnapshotWriter
	logger   *log.Logger
}

// NewSyncWorker creates a worker. snapshot may be nil when no mirror is
// configured.
func NewSyncWorker(budgets BudgetSyncer, entries EntrySyncer, store Reader, snapshot sheets.SnapshotWriter, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		budgets:  budgets,
		entries:  entries,
		store:    store,
		snapshot: snapshot,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

var _ services.Runner = (*SyncWorker)(nil)

// HandleSyncRequest processes a single sync request from AMQP. A returned
// error makes the message go back on the queue.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	w.logger.InfoContext(ctx, "Processing sync request",
		"id", msg.ID,
		log.FieldScope, msg.Scope,
		log.FieldBudgetID, msg.BudgetID,
		"reason", msg.Reason)

	switch msg.Scope {
	case amqp.ScopeBudgets:
		report, err := w.budgets.PerformFullSync(ctx)
		if err != nil {
			return fmt.Errorf("budget sync: %w", err)
		}
		w.logReport(ctx, amqp.ScopeBudgets, report.Push.Succeeded(), report.Push.Failed(), report.Push.Skipped(), report.Pull)
		return nil

	case amqp.ScopeEntries:
		report, err := w.entries.PerformFullSync(ctx, msg.BudgetID, 0)
		if err != nil {
			if errors.Is(err, services.ErrBudgetNotSynced) || errors.Is(err, services.ErrLocalBudgetNotFound) {
				// retrying cannot help until the budget itself is synced
				w.logger.WarnContext(ctx, "Dropping entries sync request",
					log.FieldBudgetID, msg.BudgetID,
					log.FieldError, err)
				return nil
			}
			return fmt.Errorf("entry sync for budget %d: %w", msg.BudgetID, err)
		}
		w.logReport(ctx, amqp.ScopeEntries, report.Push.Succeeded(), report.Push.Failed(), report.Push.Skipped(), report.Pull)
		return nil

	default:
		return fmt.Errorf("unknown sync scope %q", msg.Scope)
	}
}

// SyncAll runs the budget full sync and then the entry full sync of every
// budget known to the server. Failures of one budget do not stop the others.
// The sheet snapshot is written last, from whatever ended up stored locally.
func (w *SyncWorker) SyncAll(ctx context.Context) error {
	start := time.Now()

	if _, err := w.budgets.PerformFullSync(ctx); err != nil {
		return fmt.Errorf("budget sync: %w", err)
	}

	budgets, err := w.store.Budgets(ctx)
	if err != nil {
		return fmt.Errorf("list local budgets: %w", err)
	}

	var errs []error
	for _, b := range budgets {
		if !b.HasServerID() {
			continue
		}
		if _, err := w.entries.PerformFullSync(ctx, b.ID, b.ServerIDValue()); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.WarnContext(ctx, "Entry sync failed",
				log.NewFields().WithBudget(b.ID, b.ServerID).WithError(err).ToSlice()...)
			errs = append(errs, fmt.Errorf("budget %d: %w", b.ID, err))
		}
	}

	if err := w.writeSnapshot(ctx); err != nil {
		errs = append(errs, err)
	}

	w.logger.InfoContext(ctx, "Full sync completed",
		"budgets", len(budgets),
		"errors", len(errs),
		log.FieldDuration, time.Since(start).Milliseconds())

	return errors.Join(errs...)
}

// StartupSyncCheck pushes anything left unsynced by a previous run before
// the regular cycle starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	stats, err := w.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read local stats: %w", err)
	}

	if stats.UnsyncedBudgets == 0 && stats.UnsyncedEntries == 0 {
		w.logger.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	w.logger.InfoContext(ctx, "Found pending records on startup, pushing",
		"budgets", stats.UnsyncedBudgets,
		"entries", stats.UnsyncedEntries)

	report, err := w.budgets.SyncPendingBudgets(ctx)
	if err != nil {
		return fmt.Errorf("push budgets: %w", err)
	}

	budgets, err := w.store.Budgets(ctx)
	if err != nil {
		return fmt.Errorf("list local budgets: %w", err)
	}

	synced, failed := report.Succeeded(), report.Failed()
	for _, b := range budgets {
		if !b.HasServerID() {
			continue
		}
		entries, err := w.entries.SyncPendingEntries(ctx, b.ID)
		if err != nil {
			w.logger.WarnContext(ctx, "Startup entry push failed",
				log.NewFields().WithBudget(b.ID, b.ServerID).WithError(err).ToSlice()...)
			failed++
			continue
		}
		synced += entries.Succeeded()
		failed += entries.Failed()
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		log.FieldSynced, synced,
		log.FieldFailed, failed)
	return nil
}

func (w *SyncWorker) writeSnapshot(ctx context.Context) error {
	if w.snapshot == nil {
		return nil
	}

	budgets, err := w.store.Budgets(ctx)
	if err != nil {
		return fmt.Errorf("snapshot budgets: %w", err)
	}
	entries := make(map[int64][]core.BudgetEntry, len(budgets))
	for _, b := range budgets {
		list, err := w.store.Entries(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("snapshot entries of budget %d: %w", b.ID, err)
		}
		entries[b.ID] = list
	}

	if err := w.snapshot.WriteSnapshot(ctx, budgets, entries); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (w *SyncWorker) logReport(ctx context.Context, scope string, synced, failed, skipped int, pull services.PullReport) {
	fields := log.NewFields().
		WithBatch(synced, failed, skipped).
		WithMerge(pull.Created, pull.Updated)
	log.NewStructuredLogger(w.logger).LogSyncStage(ctx, scope, log.OpSync, fields)
}
