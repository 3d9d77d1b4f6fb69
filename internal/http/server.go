package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetsync/internal/core"
	"budgetsync/internal/log"
	"budgetsync/internal/services"
	"budgetsync/internal/storage"
)

type (
	// FullSyncer runs a complete sync cycle.
	FullSyncer interface {
		SyncAll(ctx context.Context) error
	}

	// EntrySyncer runs the entry full sync of one local budget.
	EntrySyncer interface {
		PerformFullSync(ctx context.Context, localBudgetID, serverBudgetID int64) (services.SyncReport[core.BudgetEntry], error)
	}

	// StoreProbe is what readiness needs from the local store.
	StoreProbe interface {
		Ping(ctx context.Context) error
		Stats(ctx context.Context) (storage.Stats, error)
	}
)

// Deps are the collaborators of the admin server.
type Deps struct {
	Sync    FullSyncer
	Entries EntrySyncer
	Store   StoreProbe
	Auth    services.AuthGate
}

// Server is the admin HTTP surface of the worker.
type Server struct {
	http.Server
	deps        Deps
	logger      *log.Logger
	rateLimiter *rateLimiter
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, deps Deps, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:        deps,
		logger:      logger,
		rateLimiter: newRateLimiter(10, time.Minute),
		started:     time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("POST /sync", s.withRateLimit(http.HandlerFunc(s.handleSyncAll)))
	mux.Handle("POST /budgets/{id}/sync", s.withRateLimit(http.HandlerFunc(s.handleBudgetSync)))

	var h http.Handler = mux
	h = withSecurityHeaders(h)
	h = log.AccessLog(h)
	h = log.RequestIDMiddleware(requestID)(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
