// Package storage is the SQLite implementation of the ledger ports.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"

	_ "modernc.org/sqlite"
)

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	dayLayout      = "2006-01-02"
)

type SQLiteRepository struct {
	db *sql.DB
}

// Compile-time contract check.
var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// placeholders returns "?,?,?" for n bound parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func parseDBTime(s string) time.Time {
	if t, err := time.Parse(dateTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t
	}
	return time.Time{}
}

// --- users ---

func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, COALESCE(password, ''), COALESCE(temp_password, ''), is_temp, auth_provider, created_at
		 FROM users WHERE email = ?`, email)

	var u core.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.TempPassword, &u.IsTemp, &u.Provider, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user by email: %w", err)
	}
	u.CreatedAt = parseDBTime(createdAt)
	return u, nil
}

func (r *SQLiteRepository) CreateLocalUser(ctx context.Context, email, tempPassword string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, temp_password, is_temp, auth_provider) VALUES (?, ?, 1, ?)`,
		email, tempPassword, core.ProviderLocal)
	if err != nil {
		return core.User{}, fmt.Errorf("create local user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("local user id: %w", err)
	}

	slog.InfoContext(ctx, "New local user created", "user_id", id)
	return core.User{
		ID:           id,
		Email:        email,
		TempPassword: tempPassword,
		IsTemp:       true,
		Provider:     core.ProviderLocal,
	}, nil
}

func (r *SQLiteRepository) CreateGoogleUser(ctx context.Context, email string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, is_temp, auth_provider) VALUES (?, 0, ?)`,
		email, core.ProviderGoogle)
	if err != nil {
		return core.User{}, fmt.Errorf("create google user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("google user id: %w", err)
	}

	slog.InfoContext(ctx, "New Google user created", "user_id", id)
	return core.User{ID: id, Email: email, Provider: core.ProviderGoogle}, nil
}

func (r *SQLiteRepository) SetPermanentPassword(ctx context.Context, email, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password = ?, temp_password = NULL, is_temp = 0 WHERE email = ?`,
		passwordHash, email)
	if err != nil {
		return fmt.Errorf("set permanent password: %w", err)
	}
	return nil
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, name, account_type, initial_balance_cents, currency, color, exclude_from_stats)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, a.AccountType, a.InitialBalance.Cents, a.Currency, a.Color, a.ExcludeFromStats)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, account_type, initial_balance_cents, currency, color, exclude_from_stats, created_at
		 FROM accounts WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var createdAt string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.AccountType, &a.InitialBalance.Cents,
			&a.Currency, &a.Color, &a.ExcludeFromStats, &createdAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.CreatedAt = parseDBTime(createdAt)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, accountID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListCurrencies(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT currency FROM accounts WHERE user_id = ? ORDER BY currency ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var currencies []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, parent_id, name) VALUES (?, ?, ?)`,
		c.UserID, c.ParentID, c.Name)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("category id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, parent_id, name FROM categories WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.ParentID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, categoryID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, categoryID, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// --- labels ---

func (r *SQLiteRepository) CreateLabel(ctx context.Context, l core.Label) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO labels (user_id, name) VALUES (?, ?)`, l.UserID, l.Name)
	if err != nil {
		return 0, fmt.Errorf("create label: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("label id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListLabels(ctx context.Context, userID int64) ([]core.Label, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name FROM labels WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var labels []core.Label
	for rows.Next() {
		var l core.Label
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (r *SQLiteRepository) DeleteLabel(ctx context.Context, userID, labelID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM labels WHERE id = ? AND user_id = ?`, labelID, userID)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// --- transactions ---

func (r *SQLiteRepository) AddTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback()

	res, err := dbtx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, account_id, to_account_id, category_id, transaction_type, amount_cents, transaction_date, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.AccountID, tx.ToAccountID, tx.CategoryID, tx.Type, tx.Amount.Cents,
		tx.Date.UTC().Format(dateTimeLayout), tx.Note)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	// Labels attach by name, created on first use.
	for _, name := range tx.Labels {
		labelID, err := r.findOrCreateLabel(ctx, dbtx, tx.UserID, name)
		if err != nil {
			return 0, err
		}
		if _, err := dbtx.ExecContext(ctx,
			`INSERT OR IGNORE INTO transaction_labels (transaction_id, label_id) VALUES (?, ?)`,
			id, labelID); err != nil {
			return 0, fmt.Errorf("attach label: %w", err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", id,
		"user_id", tx.UserID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents)
	return id, nil
}

func (r *SQLiteRepository) findOrCreateLabel(ctx context.Context, dbtx *sql.Tx, userID int64, name string) (int64, error) {
	var id int64
	err := dbtx.QueryRowContext(ctx,
		`SELECT id FROM labels WHERE user_id = ? AND name = ?`, userID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find label: %w", err)
	}
	res, err := dbtx.ExecContext(ctx,
		`INSERT INTO labels (user_id, name) VALUES (?, ?)`, userID, name)
	if err != nil {
		return 0, fmt.Errorf("create label: %w", err)
	}
	return res.LastInsertId()
}

const transactionColumns = `t.id, t.user_id, t.transaction_type, t.amount_cents, t.transaction_date, t.note,
	t.account_id, a.name, t.to_account_id, t.category_id, COALESCE(c.name, ''),
	COALESCE(GROUP_CONCAT(l.name), '')`

const transactionJoins = `
	FROM transactions t
	JOIN accounts a ON t.account_id = a.id
	LEFT JOIN categories c ON t.category_id = c.id
	LEFT JOIN transaction_labels tl ON tl.transaction_id = t.id
	LEFT JOIN labels l ON l.id = tl.label_id`

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f ledger.RecordFilter) ([]core.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + transactionJoins + ` WHERE t.user_id = ? `)
	args := []any{userID}

	if f.Date != "" {
		sb.WriteString(`AND date(t.transaction_date) = ? `)
		args = append(args, f.Date)
	}
	if f.Type != "" {
		sb.WriteString(`AND t.transaction_type = ? `)
		args = append(args, f.Type)
	}
	if f.CategoryID != 0 {
		sb.WriteString(`AND t.category_id = ? `)
		args = append(args, f.CategoryID)
	}
	if f.AccountID != 0 {
		sb.WriteString(`AND t.account_id = ? `)
		args = append(args, f.AccountID)
	}
	sb.WriteString(`GROUP BY t.id ORDER BY t.transaction_date DESC`)

	return r.queryTransactions(ctx, sb.String(), args)
}

func (r *SQLiteRepository) ListTransactionsSince(ctx context.Context, userID int64, scope ledger.Scope, since time.Time) ([]core.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + transactionJoins +
		` WHERE t.user_id = ? AND a.currency = ? AND t.transaction_date >= ? `)
	args := []any{userID, scope.Currency, since.UTC().Format(dateTimeLayout)}

	if len(scope.AccountIDs) > 0 {
		sb.WriteString(`AND t.account_id IN (` + placeholders(len(scope.AccountIDs)) + `) `)
		for _, id := range scope.AccountIDs {
			args = append(args, id)
		}
	}
	sb.WriteString(`GROUP BY t.id ORDER BY t.transaction_date DESC`)

	return r.queryTransactions(ctx, sb.String(), args)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args []any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var date, labels string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Amount.Cents, &date, &tx.Note,
			&tx.AccountID, &tx.AccountName, &tx.ToAccountID, &tx.CategoryID, &tx.CategoryName,
			&labels); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Date = parseDBTime(date)
		if labels != "" {
			tx.Labels = strings.Split(labels, ",")
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, transactionID int64) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx,
		`DELETE FROM transaction_labels WHERE transaction_id IN
		 (SELECT id FROM transactions WHERE id = ? AND user_id = ?)`,
		transactionID, userID); err != nil {
		return fmt.Errorf("detach labels: %w", err)
	}

	res, err := dbtx.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, transactionID, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return dbtx.Commit()
}
