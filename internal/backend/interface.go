package backend

import (
	"context"
	"time"

	"budgetsync/internal/cache"
	"budgetsync/internal/services"
	"budgetsync/internal/storage"
)

// Store is the local store every process works against.
type Store interface {
	services.BudgetStore
	services.EntryStore
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (storage.Stats, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and its optional cleanup function
type BackendResult struct {
	Store   Store
	Cleanup CleanupFunc
	// Cleaners are the caches owned by the store, for the cache manager.
	Cleaners []cache.Cleaner
}

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for store creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	CacheSize    int
	CacheTTL     time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
