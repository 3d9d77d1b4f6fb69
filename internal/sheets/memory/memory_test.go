package memory

import (
	"context"
	"testing"

	"budgetsync/internal/core"
)

func TestStoreReplacesSnapshot(t *testing.T) {
	s := New()
	ctx := context.Background()

	budgets := []core.Budget{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	if err := s.WriteSnapshot(ctx, budgets, nil); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	if got := len(s.Rows()); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}

	if err := s.WriteSnapshot(ctx, budgets[:1], nil); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Rows()); got != 2 {
		t.Fatalf("snapshot should be replaced, got %d rows", got)
	}
	if s.Writes() != 2 {
		t.Fatalf("Writes() = %d", s.Writes())
	}
}

func TestStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().WriteSnapshot(ctx, nil, nil); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
