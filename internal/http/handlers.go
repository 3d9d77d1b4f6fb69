package http

import (
	"context"
	"net/http"
	"time"

	"budgetsync/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether a sync could run right now: the session is
// authenticated and the local store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.deps.Auth != nil && s.deps.Auth.Authenticated(ctx) {
		checks["auth"] = "ok"
	} else {
		checks["auth"] = "failed: not authenticated"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.deps.Store == nil {
		checks["store"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.deps.Store.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
		if stats, err := s.deps.Store.Stats(ctx); err == nil {
			checks["pending"] = stats
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.activeClients(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleSyncAll runs a full sync cycle and waits for it.
func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	if s.deps.Sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}

	start := time.Now()
	if err := s.deps.Sync.SyncAll(ctx); err != nil {
		logger.WarnContext(ctx, "Manual sync failed", log.FieldError, err)
		writeError(w, syncErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "synced",
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// handleBudgetSync runs the entry full sync of one local budget.
func (s *Server) handleBudgetSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	id, err := parseBudgetID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Entries == nil {
		writeError(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}

	report, err := s.deps.Entries.PerformFullSync(ctx, id, 0)
	if err != nil {
		logger.WarnContext(ctx, "Manual entry sync failed",
			log.NewFields().WithBudget(id, nil).WithError(err).ToSlice()...)
		writeError(w, syncErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"budget_id": id,
		"pushed":    report.Push.Succeeded(),
		"failed":    report.Push.Failed(),
		"skipped":   report.Push.Skipped(),
		"created":   report.Pull.Created,
		"updated":   report.Pull.Updated,
	})
}
