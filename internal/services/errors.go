package services

import (
	"errors"
	"fmt"
)

// Stage failures. Callers classify them with errors.Is.
var (
	ErrUnauthenticated     = errors.New("no authenticated session")
	ErrTransport           = errors.New("transport error")
	ErrBudgetNotSynced     = errors.New("budget has no server id")
	ErrLocalBudgetNotFound = errors.New("no local budget for server id")
)

type ItemKind string

const (
	KindBudget ItemKind = "budget"
	KindEntry  ItemKind = "entry"
)

// ItemSyncError describes one failed create or update inside a push batch.
// The item stays unsynced and is retried on the next cycle.
type ItemSyncError struct {
	Kind    ItemKind
	LocalID int64
	Op      string
	Err     error
}

func (e *ItemSyncError) Error() string {
	return fmt.Sprintf("%s %d: %s: %v", e.Kind, e.LocalID, e.Op, e.Err)
}

func (e *ItemSyncError) Unwrap() error {
	return e.Err
}

func transportError(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, stage, err)
}
