package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"budgetsync/internal/core"
	"budgetsync/internal/services"
	"budgetsync/internal/storage"
)

type fakeAuth struct{ ok bool }

func (f fakeAuth) Authenticated(context.Context) bool { return f.ok }

type fakeStore struct {
	PingFunc func(ctx context.Context) error
}

func (f fakeStore) Ping(ctx context.Context) error {
	if f.PingFunc != nil {
		return f.PingFunc(ctx)
	}
	return nil
}

func (fakeStore) Stats(context.Context) (storage.Stats, error) {
	return storage.Stats{Budgets: 2, UnsyncedEntries: 1}, nil
}

type syncAllFunc func(ctx context.Context) error

func (f syncAllFunc) SyncAll(ctx context.Context) error { return f(ctx) }

type entrySyncFunc func(ctx context.Context, localBudgetID, serverBudgetID int64) (services.SyncReport[core.BudgetEntry], error)

func (f entrySyncFunc) PerformFullSync(ctx context.Context, localBudgetID, serverBudgetID int64) (services.SyncReport[core.BudgetEntry], error) {
	return f(ctx, localBudgetID, serverBudgetID)
}

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	s := NewServer(":0", deps, nil)
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Deps{})
	rr := serve(s, http.MethodGet, "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name  string
		deps  Deps
		want  int
		check string
	}{
		{"ready", Deps{Auth: fakeAuth{ok: true}, Store: fakeStore{}}, http.StatusOK, "ready"},
		{"not authenticated", Deps{Auth: fakeAuth{ok: false}, Store: fakeStore{}}, http.StatusServiceUnavailable, "not_ready"},
		{"store down", Deps{Auth: fakeAuth{ok: true}, Store: fakeStore{PingFunc: func(context.Context) error { return errors.New("locked") }}}, http.StatusServiceUnavailable, "not_ready"},
		{"no store", Deps{Auth: fakeAuth{ok: true}}, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(newTestServer(t, tt.deps), http.MethodGet, "/readyz")
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d", rr.Code, tt.want)
			}
			var body map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != tt.check {
				t.Errorf("status field = %v, want %s", body["status"], tt.check)
			}
		})
	}
}

func TestSyncAll(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, http.StatusOK},
		{"unauthenticated", services.ErrUnauthenticated, http.StatusUnauthorized},
		{"transport", fmt.Errorf("%w: list budgets: %w", services.ErrTransport, errors.New("refused")), http.StatusBadGateway},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			s := newTestServer(t, Deps{Sync: syncAllFunc(func(context.Context) error {
				calls++
				return tt.err
			})})
			rr := serve(s, http.MethodPost, "/sync")
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if calls != 1 {
				t.Errorf("SyncAll calls = %d", calls)
			}
		})
	}

	t.Run("GET not allowed", func(t *testing.T) {
		s := newTestServer(t, Deps{Sync: syncAllFunc(func(context.Context) error { return nil })})
		if rr := serve(s, http.MethodGet, "/sync"); rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status=%d", rr.Code)
		}
	})
}

func TestBudgetSync(t *testing.T) {
	var gotLocal int64
	s := newTestServer(t, Deps{Entries: entrySyncFunc(func(_ context.Context, localBudgetID, _ int64) (services.SyncReport[core.BudgetEntry], error) {
		gotLocal = localBudgetID
		switch localBudgetID {
		case 404:
			return services.SyncReport[core.BudgetEntry]{}, fmt.Errorf("budget 404: %w", services.ErrLocalBudgetNotFound)
		case 409:
			return services.SyncReport[core.BudgetEntry]{}, fmt.Errorf("budget 409: %w", services.ErrBudgetNotSynced)
		}
		return services.SyncReport[core.BudgetEntry]{
			Push: services.PushReport[core.BudgetEntry]{Items: []services.ItemResult[core.BudgetEntry]{{LocalID: 1}}},
			Pull: services.PullReport{Created: 2},
		}, nil
	})})

	rr := serve(s, http.MethodPost, "/budgets/7/sync")
	if rr.Code != http.StatusOK || gotLocal != 7 {
		t.Fatalf("status=%d local=%d", rr.Code, gotLocal)
	}
	var body map[string]any
	json.Unmarshal(rr.Body.Bytes(), &body)
	if body["pushed"] != float64(1) || body["created"] != float64(2) {
		t.Errorf("unexpected body: %v", body)
	}

	for path, want := range map[string]int{
		"/budgets/404/sync": http.StatusNotFound,
		"/budgets/409/sync": http.StatusConflict,
		"/budgets/abc/sync": http.StatusBadRequest,
		"/budgets/0/sync":   http.StatusBadRequest,
	} {
		if rr := serve(s, http.MethodPost, path); rr.Code != want {
			t.Errorf("%s status=%d, want %d", path, rr.Code, want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.allow("1.1.1.1") || !rl.allow("1.1.1.1") {
		t.Fatal("first requests should pass")
	}
	if rl.allow("1.1.1.1") {
		t.Fatal("third request within the window should be limited")
	}
	if !rl.allow("2.2.2.2") {
		t.Fatal("other clients are independent")
	}

	now = now.Add(2 * time.Minute)
	if !rl.allow("1.1.1.1") {
		t.Fatal("new window should reset the counter")
	}

	now = now.Add(10 * time.Minute)
	rl.cleanupStaleEntries()
	if rl.activeClients() != 0 {
		t.Fatalf("stale clients should be removed, got %d", rl.activeClients())
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "203.0.113.5:1234", "", "203.0.113.5"},
		{"untrusted proxy header ignored", "203.0.113.5:1234", "198.51.100.1", "203.0.113.5"},
		{"trusted proxy", "10.0.0.2:1234", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"invalid forwarded ip", "10.0.0.2:1234", "garbage", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
