/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Production persistence for wallets, transactions, recurrences, goals,
  and categories. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

THE ATOMIC INCREMENT:
  AdjustBalance is a single UPDATE statement:

    UPDATE wallets
    SET balance = COALESCE(balance, initial_balance) + delta
    WHERE id = ?

  One statement cannot partially apply, which is exactly the atomicity
  the mutation core's contract demands. The COALESCE realizes the
  "balance falls back to initial_balance" rule at the moment of the
  first adjustment.

KEY TABLES:
  wallets:      Balance-bearing accounts, one currency each
  transactions: Ledger rows including transfer legs and conversion audit
  recurrences:  Templates the materializer expands into transactions
  goals:        Savings targets with an amount_saved counter
  categories:   Global (owner_id = '') and per-owner labels

INDEXES:
  - idx_transactions_wallet / _owner / _date: History filters
  - idx_transactions_group: Transfer leg pairing on update/delete
  - idx_unique_recurrence_occurrence: One generated row per
    (recurrence, date, leg type) - the idempotency backstop

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions and the atomicity contract
  - ledger/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/ledger"
)

// Store implements ledger.Store and ledger.CategoryAccessCheck using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and sidesteps
	// SQLITE_BUSY under the single-writer model.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		currency TEXT NOT NULL,
		balance TEXT,
		initial_balance TEXT NOT NULL DEFAULT '0',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_owner
		ON wallets(owner_id);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		wallet_id TEXT,
		origin_wallet_id TEXT,
		destination_wallet_id TEXT,
		transfer_group_id TEXT,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		tx_date TEXT NOT NULL,
		description TEXT,
		category_id TEXT,
		recurrence_id TEXT,
		goal_id TEXT,
		exchange_rate TEXT,
		original_amount TEXT,
		original_currency TEXT,
		converted_amount TEXT,
		destination_currency TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_owner
		ON transactions(owner_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_wallet
		ON transactions(wallet_id) WHERE wallet_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_group
		ON transactions(transfer_group_id) WHERE transfer_group_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON transactions(tx_date);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_recurrence_occurrence
		ON transactions(recurrence_id, tx_date, tx_type)
		WHERE recurrence_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS recurrences (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		wallet_id TEXT NOT NULL,
		destination_wallet_id TEXT,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		frequency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		category_id TEXT,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_recurrences_owner_active
		ON recurrences(owner_id, is_active);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		amount_goal TEXT NOT NULL,
		amount_saved TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_goals_owner
		ON goals(owner_id);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WALLETS
// =============================================================================

func (s *Store) GetWallet(ctx context.Context, id ledger.WalletID) (*ledger.Wallet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, currency, balance, initial_balance, is_active, created_at
		FROM wallets WHERE id = ?`, id)
	return scanWallet(row)
}

func (s *Store) InsertWallet(ctx context.Context, w ledger.Wallet) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (id, owner_id, name, currency, balance, initial_balance, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.OwnerID, w.Name, w.Currency,
		nullDecimal(w.Balance), w.InitialBalance.String(), w.IsActive,
		formatTime(w.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert wallet: %w", err)
	}
	return nil
}

func (s *Store) UpdateWallet(ctx context.Context, w ledger.Wallet) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE wallets SET name = ?, currency = ?, balance = ?, initial_balance = ?, is_active = ?
		WHERE id = ?`,
		w.Name, w.Currency, nullDecimal(w.Balance), w.InitialBalance.String(), w.IsActive, w.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	return requireRow(res, ledger.ErrWalletNotFound)
}

func (s *Store) ListWallets(ctx context.Context, owner ledger.OwnerID) ([]ledger.Wallet, error) {
	query := `
		SELECT id, owner_id, name, currency, balance, initial_balance, is_active, created_at
		FROM wallets`
	args := []any{}
	if owner != "" {
		query += " WHERE owner_id = ?"
		args = append(args, owner)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
	}
	defer rows.Close()

	var wallets []ledger.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *w)
	}
	return wallets, rows.Err()
}

// AdjustBalance increments the wallet balance by delta with a single
// UPDATE statement; it cannot partially apply. Balances are stored as
// decimal TEXT, so the arithmetic goes through CAST, and the result is
// rounded to 6 places to keep float noise out of the stored value.
func (s *Store) AdjustBalance(ctx context.Context, id ledger.WalletID, delta decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE wallets
		SET balance = CAST(ROUND(CAST(COALESCE(balance, initial_balance) AS REAL) + CAST(? AS REAL), 6) AS TEXT)
		WHERE id = ?`,
		delta.String(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	return requireRow(res, ledger.ErrWalletNotFound)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionCols = `id, owner_id, wallet_id, origin_wallet_id, destination_wallet_id,
	transfer_group_id, tx_type, amount, tx_date, description, category_id, recurrence_id, goal_id,
	exchange_rate, original_amount, original_currency, converted_amount, destination_currency, created_at`

func (s *Store) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	rate, origAmt, origCur, convAmt, destCur := conversionCols(tx.Conversion)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OwnerID,
		nullString(string(tx.WalletID)),
		nullString(string(tx.OriginWalletID)),
		nullString(string(tx.DestinationWalletID)),
		nullString(tx.TransferGroupID),
		tx.Type, tx.Amount.String(), tx.Date.String(), tx.Description,
		nullString(string(tx.CategoryID)),
		nullString(string(tx.RecurrenceID)),
		nullString(string(tx.GoalID)),
		rate, origAmt, origCur, convAmt, destCur,
		formatTime(tx.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrTransactionNotFound
	}
	return tx, err
}

func (s *Store) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	rate, origAmt, origCur, convAmt, destCur := conversionCols(tx.Conversion)

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			amount = ?, tx_date = ?, description = ?, category_id = ?,
			exchange_rate = ?, original_amount = ?, original_currency = ?,
			converted_amount = ?, destination_currency = ?
		WHERE id = ?`,
		tx.Amount.String(), tx.Date.String(), tx.Description,
		nullString(string(tx.CategoryID)),
		rate, origAmt, origCur, convAmt, destCur,
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireRow(res, ledger.ErrTransactionNotFound)
}

func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireRow(res, ledger.ErrTransactionNotFound)
}

func (s *Store) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.WalletID != "" {
		where = append(where, "(wallet_id = ? OR origin_wallet_id = ? OR destination_wallet_id = ?)")
		args = append(args, f.WalletID, f.WalletID, f.WalletID)
	}
	if f.RecurrenceID != "" {
		where = append(where, "recurrence_id = ?")
		args = append(args, f.RecurrenceID)
	}
	if f.GoalID != "" {
		where = append(where, "goal_id = ?")
		args = append(args, f.GoalID)
	}
	if f.TransferGroupID != "" {
		where = append(where, "transfer_group_id = ?")
		args = append(args, f.TransferGroupID)
	}
	if len(f.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Types)), ",")
		where = append(where, "tx_type IN ("+placeholders+")")
		for _, t := range f.Types {
			args = append(args, t)
		}
	}
	if f.From != nil {
		where = append(where, "tx_date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		where = append(where, "tx_date <= ?")
		args = append(args, f.To.String())
	}

	query := `SELECT ` + transactionCols + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY tx_date ASC, created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// =============================================================================
// RECURRENCES
// =============================================================================

const recurrenceCols = `id, owner_id, wallet_id, destination_wallet_id, tx_type, amount,
	frequency, start_date, end_date, category_id, description, is_active, created_at`

func (s *Store) GetRecurrence(ctx context.Context, id ledger.RecurrenceID) (*ledger.Recurrence, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recurrenceCols+` FROM recurrences WHERE id = ?`, id)
	rec, err := scanRecurrence(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrRecurrenceNotFound
	}
	return rec, err
}

func (s *Store) InsertRecurrence(ctx context.Context, rec ledger.Recurrence) error {
	var endDate any
	if rec.EndDate != nil {
		endDate = rec.EndDate.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurrences (`+recurrenceCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.WalletID,
		nullString(string(rec.DestinationWalletID)),
		rec.Type, rec.Amount.String(), rec.Frequency,
		rec.StartDate.String(), endDate,
		nullString(string(rec.CategoryID)), rec.Description, rec.IsActive,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recurrence: %w", err)
	}
	return nil
}

func (s *Store) UpdateRecurrence(ctx context.Context, rec ledger.Recurrence) error {
	var endDate any
	if rec.EndDate != nil {
		endDate = rec.EndDate.String()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE recurrences SET
			wallet_id = ?, destination_wallet_id = ?, tx_type = ?, amount = ?,
			frequency = ?, start_date = ?, end_date = ?, category_id = ?,
			description = ?, is_active = ?
		WHERE id = ?`,
		rec.WalletID, nullString(string(rec.DestinationWalletID)),
		rec.Type, rec.Amount.String(), rec.Frequency,
		rec.StartDate.String(), endDate,
		nullString(string(rec.CategoryID)), rec.Description, rec.IsActive,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurrence: %w", err)
	}
	return requireRow(res, ledger.ErrRecurrenceNotFound)
}

func (s *Store) ListActiveRecurrences(ctx context.Context, owner ledger.OwnerID) ([]ledger.Recurrence, error) {
	query := `SELECT ` + recurrenceCols + ` FROM recurrences WHERE is_active = TRUE`
	args := []any{}
	if owner != "" {
		query += " AND owner_id = ?"
		args = append(args, owner)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurrences: %w", err)
	}
	defer rows.Close()

	var recs []ledger.Recurrence
	for rows.Next() {
		rec, err := scanRecurrence(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// GOALS
// =============================================================================

func (s *Store) GetGoal(ctx context.Context, id ledger.GoalID) (*ledger.Goal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, amount_goal, amount_saved, currency, created_at
		FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrGoalNotFound
	}
	return g, err
}

func (s *Store) InsertGoal(ctx context.Context, g ledger.Goal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (id, owner_id, name, amount_goal, amount_saved, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Name, g.AmountGoal.String(), g.AmountSaved.String(), g.Currency,
		formatTime(g.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	return nil
}

func (s *Store) SetGoalSaved(ctx context.Context, id ledger.GoalID, saved decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE goals SET amount_saved = ? WHERE id = ?`, saved.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return requireRow(res, ledger.ErrGoalNotFound)
}

func (s *Store) ListGoals(ctx context.Context, owner ledger.OwnerID) ([]ledger.Goal, error) {
	query := `
		SELECT id, owner_id, name, amount_goal, amount_saved, currency, created_at
		FROM goals`
	args := []any{}
	if owner != "" {
		query += " WHERE owner_id = ?"
		args = append(args, owner)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []ledger.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// =============================================================================
// CATEGORIES (ledger.CategoryAccessCheck)
// =============================================================================

func (s *Store) InsertCategory(ctx context.Context, c ledger.Category) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, owner_id, name) VALUES (?, ?, ?)`,
		c.ID, c.OwnerID, c.Name)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// IsAccessible reports whether the category is global or owned by owner.
func (s *Store) IsAccessible(ctx context.Context, id ledger.CategoryID, owner ledger.OwnerID) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE id = ? AND (owner_id = '' OR owner_id = ?)`,
		id, owner,
	).Scan(&count)
	return count > 0, err
}

// =============================================================================
// SCANNING HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*ledger.Wallet, error) {
	var (
		w          ledger.Wallet
		balance    sql.NullString
		initial    string
		createdStr string
	)
	err := row.Scan(&w.ID, &w.OwnerID, &w.Name, &w.Currency, &balance, &initial, &w.IsActive, &createdStr)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	if balance.Valid {
		b := mustDecimal(balance.String)
		w.Balance = &b
	}
	w.InitialBalance = mustDecimal(initial)
	w.CreatedAt = parseTime(createdStr)
	return &w, nil
}

func scanTransaction(row rowScanner) (*ledger.Transaction, error) {
	var (
		tx         ledger.Transaction
		walletID   sql.NullString
		originID   sql.NullString
		destID     sql.NullString
		groupID    sql.NullString
		amountStr  string
		dateStr    string
		desc       sql.NullString
		categoryID sql.NullString
		recID      sql.NullString
		goalID     sql.NullString
		rate       sql.NullString
		origAmt    sql.NullString
		origCur    sql.NullString
		convAmt    sql.NullString
		destCur    sql.NullString
		createdStr string
	)
	err := row.Scan(
		&tx.ID, &tx.OwnerID, &walletID, &originID, &destID, &groupID,
		&tx.Type, &amountStr, &dateStr, &desc, &categoryID, &recID, &goalID,
		&rate, &origAmt, &origCur, &convAmt, &destCur, &createdStr,
	)
	if err != nil {
		return nil, err
	}

	tx.WalletID = ledger.WalletID(walletID.String)
	tx.OriginWalletID = ledger.WalletID(originID.String)
	tx.DestinationWalletID = ledger.WalletID(destID.String)
	tx.TransferGroupID = groupID.String
	tx.Amount = mustDecimal(amountStr)
	tx.Description = desc.String
	tx.CategoryID = ledger.CategoryID(categoryID.String)
	tx.RecurrenceID = ledger.RecurrenceID(recID.String)
	tx.GoalID = ledger.GoalID(goalID.String)
	tx.CreatedAt = parseTime(createdStr)

	if d, perr := ledger.ParseDate(dateStr); perr == nil {
		tx.Date = d
	}
	if rate.Valid {
		tx.Conversion = &ledger.ConversionAudit{
			Rate:                mustDecimal(rate.String),
			OriginalAmount:      mustDecimal(origAmt.String),
			OriginalCurrency:    origCur.String,
			ConvertedAmount:     mustDecimal(convAmt.String),
			DestinationCurrency: destCur.String,
		}
	}
	return &tx, nil
}

func scanRecurrence(row rowScanner) (*ledger.Recurrence, error) {
	var (
		rec        ledger.Recurrence
		destID     sql.NullString
		amountStr  string
		startStr   string
		endStr     sql.NullString
		categoryID sql.NullString
		desc       sql.NullString
		createdStr string
	)
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.WalletID, &destID, &rec.Type, &amountStr,
		&rec.Frequency, &startStr, &endStr, &categoryID, &desc, &rec.IsActive, &createdStr,
	)
	if err != nil {
		return nil, err
	}

	rec.DestinationWalletID = ledger.WalletID(destID.String)
	rec.Amount = mustDecimal(amountStr)
	rec.CategoryID = ledger.CategoryID(categoryID.String)
	rec.Description = desc.String
	rec.CreatedAt = parseTime(createdStr)

	if d, perr := ledger.ParseDate(startStr); perr == nil {
		rec.StartDate = d
	}
	if endStr.Valid {
		if d, perr := ledger.ParseDate(endStr.String); perr == nil {
			rec.EndDate = &d
		}
	}
	return &rec, nil
}

func scanGoal(row rowScanner) (*ledger.Goal, error) {
	var (
		g          ledger.Goal
		goalStr    string
		savedStr   string
		createdStr string
	)
	err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &goalStr, &savedStr, &g.Currency, &createdStr)
	if err != nil {
		return nil, err
	}
	g.AmountGoal = mustDecimal(goalStr)
	g.AmountSaved = mustDecimal(savedStr)
	g.CreatedAt = parseTime(createdStr)
	return &g, nil
}

// =============================================================================
// SQL HELPERS
// =============================================================================

func conversionCols(c *ledger.ConversionAudit) (rate, origAmt, origCur, convAmt, destCur any) {
	if c == nil {
		return nil, nil, nil, nil, nil
	}
	return c.Rate.String(), c.OriginalAmount.String(), c.OriginalCurrency,
		c.ConvertedAmount.String(), c.DestinationCurrency
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
