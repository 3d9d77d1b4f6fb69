package services

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/semaphore"
)

const budgetsScope = "budgets"

func budgetScope(localBudgetID int64) string {
	return "budget:" + strconv.FormatInt(localBudgetID, 10)
}

// scopeLocks serializes full syncs that touch the same scope.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[string]*semaphore.Weighted)}
}

func (l *scopeLocks) acquire(ctx context.Context, scope string) (func(), error) {
	l.mu.Lock()
	sem, ok := l.locks[scope]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.locks[scope] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
