package cli

import (
	"context"
	"errors"
	"fmt"

	"budgetsync/internal/amqp"
	"budgetsync/internal/auth"
	"budgetsync/internal/backend"
	"budgetsync/internal/cache"
	"budgetsync/internal/config"
	"budgetsync/internal/log"
	"budgetsync/internal/remote"
	"budgetsync/internal/services"
	"budgetsync/internal/sheets"
	gsheet "budgetsync/internal/sheets/google"
	"budgetsync/internal/worker"
)

// App holds the wired components of a process.
type App struct {
	Config   *config.Config
	Store    backend.Store
	Session  *auth.Session
	Budgets  *services.BudgetSyncOrchestrator
	Entries  *services.BudgetEntrySyncOrchestrator
	Edits    *services.LocalBudgets
	Worker   *worker.SyncWorker
	Executor *services.PoolExecutor
	Cleaners []cache.Cleaner

	cleanup []func() error
}

// Build wires the local store, the remote API client and the sync
// orchestrators from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	app := &App{Config: cfg}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	app.Store = res.Store
	app.Cleaners = res.Cleaners
	if res.Cleanup != nil {
		app.cleanup = append(app.cleanup, res.Cleanup)
	}

	session, err := auth.FromSources(cfg.APIToken, cfg.APITokenFile)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}
	app.Session = session

	client := remote.NewClient(cfg.APIBaseURL, session.TokenSource(), cfg.APITimeout)
	app.Executor = services.NewPoolExecutor(cfg.SyncWorkers)

	syncLogger := logger.WithComponent(log.ComponentSync)
	app.Budgets = services.NewBudgetSyncOrchestrator(app.Store, remote.NewBudgetService(client), session, app.Executor, syncLogger)
	app.Entries = services.NewBudgetEntrySyncOrchestrator(app.Store, remote.NewEntryService(client), session, app.Budgets, app.Executor, syncLogger)
	app.Edits = services.NewLocalBudgets(app.Store, app.Store)

	var mirror sheets.SnapshotWriter
	if cfg.SheetsEnabled() {
		gc, err := gsheet.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init sheets mirror: %w", err)
		}
		mirror = gc
		logger.InfoContext(ctx, "Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}
	app.Worker = worker.NewSyncWorker(app.Budgets, app.Entries, app.Store, mirror, logger)

	return app, nil
}

// Publisher connects to the broker configured in cfg.
func Publisher(cfg *config.Config) (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		return nil, errors.New("AMQP_URL is not set")
	}
	return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
}

// Close releases the store. Safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for _, fn := range a.cleanup {
		errs = append(errs, fn())
	}
	a.cleanup = nil
	return errors.Join(errs...)
}
