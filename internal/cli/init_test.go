package cli

import (
	"context"
	"log/slog"
	"testing"

	"budgetsync/internal/config"
	"budgetsync/internal/core"
	"budgetsync/internal/log"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func memoryConfig() *config.Config {
	cfg := config.Load()
	cfg.DataBackend = "memory"
	cfg.APIToken = "token"
	cfg.APITokenFile = ""
	cfg.AMQPURL = ""
	cfg.GoogleSpreadsheetID = ""
	return cfg
}

func TestBuildMemoryApp(t *testing.T) {
	ctx := context.Background()
	app, err := Build(ctx, memoryConfig(), log.Discard())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer app.Close()

	if !app.Session.Authenticated(ctx) {
		t.Error("session should be authenticated with a static token")
	}

	saved, err := app.Edits.SaveBudget(ctx, core.Budget{Name: "Trip"})
	if err != nil {
		t.Fatalf("SaveBudget() error = %v", err)
	}
	if _, err := app.Budgets.ServerBudgetID(ctx, saved.ID); err == nil {
		t.Error("a new budget has no server id yet")
	}
	if err := app.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.DataBackend = "sheets"
	if _, err := Build(context.Background(), cfg, log.Discard()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestPublisherRequiresURL(t *testing.T) {
	if _, err := Publisher(memoryConfig()); err == nil {
		t.Fatal("expected error without AMQP_URL")
	}
}
