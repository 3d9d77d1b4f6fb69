package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"budgetsync/internal/cache"
	"budgetsync/internal/core"

	_ "modernc.org/sqlite"
)

const budgetsKey = "budgets"

func entriesKey(budgetID int64) string {
	return "entries:" + strconv.FormatInt(budgetID, 10)
}

// SQLiteRepository is the durable local record store. Cached reads and every
// write that invalidates them run under mu, so a reader never replaces the
// cache with a list that predates a concurrent write.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries

	mu      sync.Mutex
	budgets *cache.LRUCache[[]core.Budget]
	entries *cache.LRUCache[[]core.BudgetEntry]
}

type Option func(*options)

type options struct {
	cacheSize int
	cacheTTL  time.Duration
}

// WithCache sizes the read cache. A zero ttl keeps entries until invalidated.
func WithCache(size int, ttl time.Duration) Option {
	return func(o *options) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	o := options{cacheSize: 128}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps writes serialized and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		budgets: cache.NewLRUCache[[]core.Budget](1, o.cacheTTL),
		entries: cache.NewLRUCache[[]core.BudgetEntry](o.cacheSize, o.cacheTTL),
	}, nil
}

// sqliteDSN enables foreign keys on every pooled connection.
func sqliteDSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Cleaners exposes the read caches for periodic expiry.
func (r *SQLiteRepository) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{r.budgets, r.entries}
}

// Budgets returns every local budget, served from cache when possible.
func (r *SQLiteRepository) Budgets(ctx context.Context) ([]core.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.budgets.Get(budgetsKey); ok {
		return slices.Clone(cached), nil
	}

	rows, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	items, err := budgetsFromRows(rows)
	if err != nil {
		return nil, err
	}
	r.budgets.Set(budgetsKey, items)
	return slices.Clone(items), nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row, err := r.queries.GetBudget(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return budgetFromRow(row)
}

func (r *SQLiteRepository) UnsyncedBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.queries.ListUnsyncedBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unsynced budgets: %w", err)
	}
	return budgetsFromRows(rows)
}

// CreateBudget inserts b and returns it with its assigned local id.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	row, err := r.queries.InsertBudget(ctx, budgetToRow(b))
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	r.budgets.Delete(budgetsKey)

	created, err := budgetFromRow(row)
	if err != nil {
		return core.Budget{}, err
	}
	slog.DebugContext(ctx, "Budget saved to SQLite",
		"id", created.ID,
		"server_id", created.ServerIDValue(),
		"synced", created.IsSynced)
	return created, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.queries.UpdateBudget(ctx, budgetToRow(b))
	if err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update budget %d: %w", b.ID, ErrNotFound)
	}
	r.budgets.Delete(budgetsKey)
	return nil
}

// Entries returns the entries of one budget, served from cache when possible.
func (r *SQLiteRepository) Entries(ctx context.Context, budgetID int64) ([]core.BudgetEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entriesKey(budgetID)
	if cached, ok := r.entries.Get(key); ok {
		return slices.Clone(cached), nil
	}

	rows, err := r.queries.ListEntries(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list entries for budget %d: %w", budgetID, err)
	}
	items, err := entriesFromRows(rows)
	if err != nil {
		return nil, err
	}
	r.entries.Set(key, items)
	return slices.Clone(items), nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (core.BudgetEntry, error) {
	row, err := r.queries.GetEntry(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetEntry{}, fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.BudgetEntry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return entryFromRow(row)
}

// EntryByServerID finds an entry by its server id in any budget.
func (r *SQLiteRepository) EntryByServerID(ctx context.Context, serverID int64) (core.BudgetEntry, error) {
	row, err := r.queries.GetEntryByServerID(ctx, serverID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetEntry{}, fmt.Errorf("entry with server id %d: %w", serverID, ErrNotFound)
	}
	if err != nil {
		return core.BudgetEntry{}, fmt.Errorf("get entry by server id %d: %w", serverID, err)
	}
	return entryFromRow(row)
}

func (r *SQLiteRepository) UnsyncedEntries(ctx context.Context, budgetID int64) ([]core.BudgetEntry, error) {
	rows, err := r.queries.ListUnsyncedEntries(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list unsynced entries for budget %d: %w", budgetID, err)
	}
	return entriesFromRows(rows)
}

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.BudgetEntry) (core.BudgetEntry, error) {
	if err := e.Validate(); err != nil {
		return core.BudgetEntry{}, fmt.Errorf("create entry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.queries.GetBudget(ctx, e.BudgetID); errors.Is(err, sql.ErrNoRows) {
		return core.BudgetEntry{}, fmt.Errorf("create entry: budget %d: %w", e.BudgetID, ErrNotFound)
	} else if err != nil {
		return core.BudgetEntry{}, fmt.Errorf("create entry: load budget %d: %w", e.BudgetID, err)
	}

	row, err := r.queries.InsertEntry(ctx, entryToRow(e))
	if err != nil {
		return core.BudgetEntry{}, fmt.Errorf("insert entry: %w", err)
	}
	r.entries.Delete(entriesKey(e.BudgetID))

	created, err := entryFromRow(row)
	if err != nil {
		return core.BudgetEntry{}, err
	}
	slog.DebugContext(ctx, "Entry saved to SQLite",
		"id", created.ID,
		"budget_id", created.BudgetID,
		"server_id", created.ServerIDValue(),
		"synced", created.IsSynced)
	return created, nil
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.BudgetEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("update entry %d: %w", e.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.queries.UpdateEntry(ctx, entryToRow(e))
	if err != nil {
		return fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update entry %d: %w", e.ID, ErrNotFound)
	}
	// The entry may have moved between budgets, so drop every cached list.
	r.entries.DeletePrefix("entries:")
	return nil
}

// Stats counts local records and how many still wait for a push.
func (r *SQLiteRepository) Stats(ctx context.Context) (Stats, error) {
	budgets, err := r.Budgets(ctx)
	if err != nil {
		return Stats{}, err
	}
	unsynced, err := r.UnsyncedBudgets(ctx)
	if err != nil {
		return Stats{}, err
	}
	pendingEntries, err := r.queries.CountUnsyncedEntries(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count unsynced entries: %w", err)
	}
	return Stats{
		Budgets:         len(budgets),
		UnsyncedBudgets: len(unsynced),
		UnsyncedEntries: int(pendingEntries),
	}, nil
}

func budgetToRow(b core.Budget) BudgetRow {
	return BudgetRow{
		ID:           b.ID,
		ServerID:     nullInt(b.ServerID),
		IsSynced:     b.IsSynced,
		LastSyncedAt: nullTime(b.LastSyncedAt),
		Name:         b.Name,
		Amount:       b.Amount,
		Date:         formatTime(b.Date),
	}
}

func budgetFromRow(row BudgetRow) (core.Budget, error) {
	date, err := parseTime(row.Date)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d date: %w", row.ID, err)
	}
	lastSynced, err := parseNullTime(row.LastSyncedAt)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d last_synced_at: %w", row.ID, err)
	}
	return core.Budget{
		ID:           row.ID,
		ServerID:     ptrInt(row.ServerID),
		IsSynced:     row.IsSynced,
		LastSyncedAt: lastSynced,
		Name:         row.Name,
		Amount:       row.Amount,
		Date:         date,
	}, nil
}

func budgetsFromRows(rows []BudgetRow) ([]core.Budget, error) {
	items := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := budgetFromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, nil
}

func entryToRow(e core.BudgetEntry) EntryRow {
	return EntryRow{
		ID:               e.ID,
		ServerID:         nullInt(e.ServerID),
		IsSynced:         e.IsSynced,
		BudgetID:         e.BudgetID,
		Amount:           e.Amount,
		Description:      e.Description,
		Category:         e.Category,
		Type:             e.Type.String(),
		CreatedByEmail:   e.CreatedByEmail,
		UpdatedByEmail:   e.UpdatedByEmail,
		CreationDate:     nullTime(e.CreationDate),
		ModificationDate: nullTime(e.ModificationDate),
	}
}

func entryFromRow(row EntryRow) (core.BudgetEntry, error) {
	created, err := parseNullTime(row.CreationDate)
	if err != nil {
		return core.BudgetEntry{}, fmt.Errorf("entry %d creation_date: %w", row.ID, err)
	}
	modified, err := parseNullTime(row.ModificationDate)
	if err != nil {
		return core.BudgetEntry{}, fmt.Errorf("entry %d modification_date: %w", row.ID, err)
	}
	return core.BudgetEntry{
		ID:               row.ID,
		ServerID:         ptrInt(row.ServerID),
		IsSynced:         row.IsSynced,
		BudgetID:         row.BudgetID,
		Amount:           row.Amount,
		Description:      row.Description,
		Category:         row.Category,
		Type:             core.EntryType(row.Type),
		CreatedByEmail:   row.CreatedByEmail,
		UpdatedByEmail:   row.UpdatedByEmail,
		CreationDate:     created,
		ModificationDate: modified,
	}, nil
}

func entriesFromRows(rows []EntryRow) ([]core.BudgetEntry, error) {
	items := make([]core.BudgetEntry, 0, len(rows))
	for _, row := range rows {
		e, err := entryFromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func ptrInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return core.Int64Ptr(v.Int64)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
