package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  EntryType = "income"
	Outcome EntryType = "outcome"
)

type (
	EntryType string

	// Budget is a spending plan owned by the local user. ID is assigned by the
	// local store; ServerID is assigned by the backend on first successful push.
	Budget struct {
		ID           int64
		ServerID     *int64
		IsSynced     bool
		LastSyncedAt *time.Time
		Name         string
		Amount       float64
		Date         time.Time
	}

	// BudgetEntry is a single income or outcome movement inside a Budget.
	// Provenance fields (CreatedByEmail, UpdatedByEmail, CreationDate,
	// ModificationDate) are only ever copied from server responses.
	BudgetEntry struct {
		ID          int64
		ServerID    *int64
		IsSynced    bool
		BudgetID    int64
		Amount      float64
		Description string
		Category    string
		Type        EntryType

		CreatedByEmail   string
		UpdatedByEmail   string
		CreationDate     *time.Time
		ModificationDate *time.Time
	}
)

var (
	ErrSyncedWithoutServerID = errors.New("synced record must carry a server id")
	ErrEmptyName             = errors.New("empty budget name")
	ErrMissingBudget         = errors.New("entry has no parent budget")
	ErrInvalidEntryType      = errors.New("invalid entry type")
)

// IsValid reports whether t is one of the known entry types.
func (t EntryType) IsValid() bool {
	switch t {
	case Income, Outcome:
		return true
	default:
		return false
	}
}

func (t EntryType) String() string {
	return string(t)
}

// HasServerID reports whether the budget has been accepted by the server.
func (b Budget) HasServerID() bool {
	return b.ServerID != nil
}

// ServerIDValue returns the server id or 0 when the budget was never pushed.
func (b Budget) ServerIDValue() int64 {
	if b.ServerID == nil {
		return 0
	}
	return *b.ServerID
}

func (b Budget) Validate() error {
	if b.IsSynced && b.ServerID == nil {
		return ErrSyncedWithoutServerID
	}
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// HasServerID reports whether the entry has been accepted by the server.
func (e BudgetEntry) HasServerID() bool {
	return e.ServerID != nil
}

// ServerIDValue returns the server id or 0 when the entry was never pushed.
func (e BudgetEntry) ServerIDValue() int64 {
	if e.ServerID == nil {
		return 0
	}
	return *e.ServerID
}

func (e BudgetEntry) Validate() error {
	if e.IsSynced && e.ServerID == nil {
		return ErrSyncedWithoutServerID
	}
	if e.BudgetID <= 0 {
		return ErrMissingBudget
	}
	if !e.Type.IsValid() {
		return ErrInvalidEntryType
	}
	return nil
}

// Int64Ptr returns a pointer to a copy of v.
func Int64Ptr(v int64) *int64 {
	return &v
}

// TimePtr returns a pointer to a copy of t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
