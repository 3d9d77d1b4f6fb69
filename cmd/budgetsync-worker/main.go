package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetsync/internal/cache"
	"budgetsync/internal/cli"
	httpserver "budgetsync/internal/http"
	"budgetsync/internal/log"
	"budgetsync/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)

	if err := run(logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(logger *log.Logger) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	logger.InfoContext(ctx, "Starting budgetsync-worker",
		"backend", cfg.DataBackend,
		"api", cfg.APIBaseURL,
		"interval", cfg.SyncInterval,
		"workers", cfg.SyncWorkers)

	app, err := cli.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	cacheManager := cache.NewManager()
	for _, c := range app.Cleaners {
		cacheManager.Register(c)
	}
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	if err := app.Worker.StartupSyncCheck(ctx); err != nil {
		logger.WarnContext(ctx, "Startup sync check failed", log.FieldError, err)
	}

	processor := services.NewSyncProcessor(app.Worker, services.SyncProcessorConfig{
		Interval:   cfg.SyncInterval,
		RunOnStart: true,
	})

	server := httpserver.NewServer(":"+cfg.Port, httpserver.Deps{
		Sync:    app.Worker,
		Entries: app.Entries,
		Store:   app.Store,
		Auth:    app.Session,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return processor.Stop(stopCtx)
	})

	if cfg.AMQPEnabled() {
		consumer, err := cli.Publisher(cfg)
		if err != nil {
			return err
		}
		defer consumer.Close()

		g.Go(func() error {
			err := consumer.ConsumeWithRetry(gctx, app.Worker.HandleSyncRequest)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.InfoContext(ctx, "AMQP disabled - no AMQP_URL provided")
	}

	g.Go(func() error {
		logger.InfoContext(gctx, "Admin server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if werr := app.Executor.Wait(waitCtx); werr != nil {
		logger.Warn("Sync tasks still running at shutdown", log.FieldError, werr)
	}
	return err
}
