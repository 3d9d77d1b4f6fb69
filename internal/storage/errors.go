package storage

import "errors"

// ErrNotFound is returned when a record with the requested local id does not exist.
var ErrNotFound = errors.New("record not found")

// Stats summarizes the local store for status reporting.
type Stats struct {
	Budgets         int `json:"budgets"`
	UnsyncedBudgets int `json:"unsynced_budgets"`
	UnsyncedEntries int `json:"unsynced_entries"`
}
