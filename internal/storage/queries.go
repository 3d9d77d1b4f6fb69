package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type BudgetRow struct {
	ID           int64
	ServerID     sql.NullInt64
	IsSynced     bool
	LastSyncedAt sql.NullString
	Name         string
	Amount       float64
	Date         string
}

type EntryRow struct {
	ID               int64
	ServerID         sql.NullInt64
	IsSynced         bool
	BudgetID         int64
	Amount           float64
	Description      string
	Category         string
	Type             string
	CreatedByEmail   string
	UpdatedByEmail   string
	CreationDate     sql.NullString
	ModificationDate sql.NullString
}

const budgetColumns = `id, server_id, is_synced, last_synced_at, name, amount, date`

const entryColumns = `id, server_id, is_synced, budget_id, amount, description, category, type,
	created_by_email, updated_by_email, creation_date, modification_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(s rowScanner) (BudgetRow, error) {
	var b BudgetRow
	err := s.Scan(&b.ID, &b.ServerID, &b.IsSynced, &b.LastSyncedAt, &b.Name, &b.Amount, &b.Date)
	return b, err
}

func scanEntry(s rowScanner) (EntryRow, error) {
	var e EntryRow
	err := s.Scan(&e.ID, &e.ServerID, &e.IsSynced, &e.BudgetID, &e.Amount, &e.Description,
		&e.Category, &e.Type, &e.CreatedByEmail, &e.UpdatedByEmail, &e.CreationDate, &e.ModificationDate)
	return e, err
}

const listBudgets = `SELECT ` + budgetColumns + ` FROM budgets ORDER BY id`

func (q *Queries) ListBudgets(ctx context.Context) ([]BudgetRow, error) {
	return q.queryBudgets(ctx, listBudgets)
}

const listUnsyncedBudgets = `SELECT ` + budgetColumns + ` FROM budgets WHERE is_synced = 0 ORDER BY id`

func (q *Queries) ListUnsyncedBudgets(ctx context.Context) ([]BudgetRow, error) {
	return q.queryBudgets(ctx, listUnsyncedBudgets)
}

const getBudget = `SELECT ` + budgetColumns + ` FROM budgets WHERE id = ?`

func (q *Queries) GetBudget(ctx context.Context, id int64) (BudgetRow, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, id))
}

const insertBudget = `INSERT INTO budgets (server_id, is_synced, last_synced_at, name, amount, date)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + budgetColumns

func (q *Queries) InsertBudget(ctx context.Context, arg BudgetRow) (BudgetRow, error) {
	return scanBudget(q.db.QueryRowContext(ctx, insertBudget,
		arg.ServerID, arg.IsSynced, arg.LastSyncedAt, arg.Name, arg.Amount, arg.Date))
}

const updateBudget = `UPDATE budgets
SET server_id = ?, is_synced = ?, last_synced_at = ?, name = ?, amount = ?, date = ?
WHERE id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, arg BudgetRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudget,
		arg.ServerID, arg.IsSynced, arg.LastSyncedAt, arg.Name, arg.Amount, arg.Date, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) queryBudgets(ctx context.Context, query string, args ...any) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []BudgetRow
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const listEntries = `SELECT ` + entryColumns + ` FROM budget_entries WHERE budget_id = ? ORDER BY id`

func (q *Queries) ListEntries(ctx context.Context, budgetID int64) ([]EntryRow, error) {
	return q.queryEntries(ctx, listEntries, budgetID)
}

const listUnsyncedEntries = `SELECT ` + entryColumns + ` FROM budget_entries
WHERE budget_id = ? AND is_synced = 0 ORDER BY id`

func (q *Queries) ListUnsyncedEntries(ctx context.Context, budgetID int64) ([]EntryRow, error) {
	return q.queryEntries(ctx, listUnsyncedEntries, budgetID)
}

const countUnsyncedEntries = `SELECT COUNT(*) FROM budget_entries WHERE is_synced = 0`

func (q *Queries) CountUnsyncedEntries(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUnsyncedEntries).Scan(&n)
	return n, err
}

const getEntry = `SELECT ` + entryColumns + ` FROM budget_entries WHERE id = ?`

func (q *Queries) GetEntry(ctx context.Context, id int64) (EntryRow, error) {
	return scanEntry(q.db.QueryRowContext(ctx, getEntry, id))
}

const getEntryByServerID = `SELECT ` + entryColumns + ` FROM budget_entries WHERE server_id = ?`

func (q *Queries) GetEntryByServerID(ctx context.Context, serverID int64) (EntryRow, error) {
	return scanEntry(q.db.QueryRowContext(ctx, getEntryByServerID, serverID))
}

const insertEntry = `INSERT INTO budget_entries (server_id, is_synced, budget_id, amount, description, category, type,
	created_by_email, updated_by_email, creation_date, modification_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + entryColumns

func (q *Queries) InsertEntry(ctx context.Context, arg EntryRow) (EntryRow, error) {
	return scanEntry(q.db.QueryRowContext(ctx, insertEntry,
		arg.ServerID, arg.IsSynced, arg.BudgetID, arg.Amount, arg.Description, arg.Category, arg.Type,
		arg.CreatedByEmail, arg.UpdatedByEmail, arg.CreationDate, arg.ModificationDate))
}

const updateEntry = `UPDATE budget_entries
SET server_id = ?, is_synced = ?, budget_id = ?, amount = ?, description = ?, category = ?, type = ?,
	created_by_email = ?, updated_by_email = ?, creation_date = ?, modification_date = ?
WHERE id = ?`

func (q *Queries) UpdateEntry(ctx context.Context, arg EntryRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateEntry,
		arg.ServerID, arg.IsSynced, arg.BudgetID, arg.Amount, arg.Description, arg.Category, arg.Type,
		arg.CreatedByEmail, arg.UpdatedByEmail, arg.CreationDate, arg.ModificationDate, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) queryEntries(ctx context.Context, query string, args ...any) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []EntryRow
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
