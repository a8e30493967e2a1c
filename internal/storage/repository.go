// Package storage is the persistence layer: a local SQLite database
// holding the users, accounts, transactions and transaction_types
// collections. Multi-collection operations (cascade deletes, snapshot
// import) run inside a single SQL transaction so they apply
// all-or-nothing.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finanzas/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports a read of a record that does not exist. Every
// caller checks it before touching dependent state.
var ErrNotFound = errors.New("record not found")

type SQLiteRepository struct {
	db *sql.DB
}

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

// --- users ---

func (r *SQLiteRepository) AddUser(ctx context.Context, u core.User) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, last_name, photo_data, selected_account_id) VALUES (?, ?, ?, ?)`,
		u.Name, u.LastName, u.PhotoData, u.SelectedAccountID)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, last_name, photo_data, selected_account_id FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.LastName, &u.PhotoData, &u.SelectedAccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// PutUser upserts keyed by id.
func (r *SQLiteRepository) PutUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (id, name, last_name, photo_data, selected_account_id) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.LastName, u.PhotoData, u.SelectedAccountID)
	if err != nil {
		return fmt.Errorf("put user %d: %w", u.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, last_name, photo_data, selected_account_id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name, &u.LastName, &u.PhotoData, &u.SelectedAccountID); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// --- accounts ---

const accountCols = `id, user_id, name, description, balance_cents`

func scanAccount(s interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	var userID sql.NullInt64
	if err := s.Scan(&a.ID, &userID, &a.Name, &a.Description, &a.Balance.Cents); err != nil {
		return core.Account{}, err
	}
	a.UserID = userID.Int64 // generation-1 rows have NULL user_id
	return a, nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func (r *SQLiteRepository) AddAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, name, description, balance_cents) VALUES (?, ?, ?, ?)`,
		nullID(a.UserID), a.Name, a.Description, a.Balance.Cents)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

func (r *SQLiteRepository) PutAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO accounts (id, user_id, name, description, balance_cents) VALUES (?, ?, ?, ?, ?)`,
		a.ID, nullID(a.UserID), a.Name, a.Description, a.Balance.Cents)
	if err != nil {
		return fmt.Errorf("put account %d: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) listAccounts(ctx context.Context, query string, args ...any) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return r.listAccounts(ctx, `SELECT `+accountCols+` FROM accounts ORDER BY id`)
}

func (r *SQLiteRepository) ListAccountsByUser(ctx context.Context, userID int64) ([]core.Account, error) {
	return r.listAccounts(ctx, `SELECT `+accountCols+` FROM accounts WHERE user_id = ? ORDER BY id`, userID)
}

// SetAccountBalance writes the cached balance field. It reports whether
// the account row still existed; a vanished account is not an error
// because refreshes can race with a cascade delete.
func (r *SQLiteRepository) SetAccountBalance(ctx context.Context, id int64, balance core.Money) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = ? WHERE id = ?`, balance.Cents, id)
	if err != nil {
		return false, fmt.Errorf("set account %d balance: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set account balance rows: %w", err)
	}
	return n > 0, nil
}

// --- transactions ---

const txCols = `id, account_id, user_id, type, sign, amount_cents, date, description`

func scanTransaction(s interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var userID sql.NullInt64
	var sign string
	if err := s.Scan(&t.ID, &t.AccountID, &userID, &t.Type, &sign, &t.Amount.Cents, &t.Date, &t.Description); err != nil {
		return core.Transaction{}, err
	}
	t.UserID = userID.Int64
	t.Sign = core.Sign(sign)
	return t, nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (account_id, user_id, type, sign, amount_cents, date, description) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, nullID(t.UserID), t.Type, string(t.Sign), t.Amount.Cents, t.Date, t.Description)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+txCols+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) PutTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transactions (id, account_id, user_id, type, sign, amount_cents, date, description) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, nullID(t.UserID), t.Type, string(t.Sign), t.Amount.Cents, t.Date, t.Description)
	if err != nil {
		return fmt.Errorf("put transaction %d: %w", t.ID, err)
	}
	return nil
}

// DeleteTransaction is idempotent; deleting an already-gone row is not
// an error.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) listTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.listTransactions(ctx, `SELECT `+txCols+` FROM transactions ORDER BY id`)
}

// ListTransactionsByAccount returns the account's transactions in
// insertion order, the order display sorting uses for ties.
func (r *SQLiteRepository) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return r.listTransactions(ctx,
		`SELECT `+txCols+` FROM transactions WHERE account_id = ? ORDER BY id`, accountID)
}

func (r *SQLiteRepository) ListTransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return r.listTransactions(ctx,
		`SELECT `+txCols+` FROM transactions WHERE user_id = ? ORDER BY id`, userID)
}

// --- transaction types ---

// UpsertType creates or overwrites a type definition by name. Existing
// transactions recorded under the old sign are left untouched.
func (r *SQLiteRepository) UpsertType(ctx context.Context, tt core.TransactionType) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transaction_types (type, sign) VALUES (?, ?)`,
		tt.Type, string(tt.Sign))
	if err != nil {
		return fmt.Errorf("upsert type %q: %w", tt.Type, err)
	}
	return nil
}

func (r *SQLiteRepository) GetType(ctx context.Context, name string) (core.TransactionType, error) {
	var tt core.TransactionType
	var sign string
	err := r.db.QueryRowContext(ctx,
		`SELECT type, sign FROM transaction_types WHERE type = ?`, name).Scan(&tt.Type, &sign)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TransactionType{}, ErrNotFound
	}
	if err != nil {
		return core.TransactionType{}, fmt.Errorf("get type %q: %w", name, err)
	}
	tt.Sign = core.Sign(sign)
	return tt, nil
}

// DeleteType removes the definition without checking for transactions
// still referencing it; their copied sign stays valid.
func (r *SQLiteRepository) DeleteType(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transaction_types WHERE type = ?`, name); err != nil {
		return fmt.Errorf("delete type %q: %w", name, err)
	}
	return nil
}

// RenameType replaces a definition under a new name in one grouped
// transaction. Recorded transactions keep the old label and sign.
func (r *SQLiteRepository) RenameType(ctx context.Context, oldName string, tt core.TransactionType) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rename type: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM transaction_types WHERE type = ?`, oldName)
	if err != nil {
		return fmt.Errorf("rename type %q: %w", oldName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename type rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO transaction_types (type, sign) VALUES (?, ?)`,
		tt.Type, string(tt.Sign)); err != nil {
		return fmt.Errorf("rename type insert %q: %w", tt.Type, err)
	}
	return tx.Commit()
}

// ListTypes returns all registered types in storage order.
func (r *SQLiteRepository) ListTypes(ctx context.Context) ([]core.TransactionType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type, sign FROM transaction_types ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list types: %w", err)
	}
	defer rows.Close()

	var types []core.TransactionType
	for rows.Next() {
		var tt core.TransactionType
		var sign string
		if err := rows.Scan(&tt.Type, &sign); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		tt.Sign = core.Sign(sign)
		types = append(types, tt)
	}
	return types, rows.Err()
}

// --- grouped cascades ---

// DeleteAccountCascade removes the account and every transaction whose
// account_id matches, atomically. Returns ErrNotFound if the account
// does not exist; no transaction row is touched in that case.
func (r *SQLiteRepository) DeleteAccountCascade(ctx context.Context, accountID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin account cascade: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("cascade delete account %d: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("account cascade rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("cascade delete transactions of account %d: %w", accountID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit account cascade: %w", err)
	}

	slog.InfoContext(ctx, "Account cascade delete committed", "account_id", accountID)
	return nil
}

// DeleteUserCascade removes the user with all accounts and transactions
// owned by it, atomically. The last-user guard lives in the service
// layer; the store only enforces existence.
func (r *SQLiteRepository) DeleteUserCascade(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin user cascade: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("cascade delete user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user cascade rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("cascade delete accounts of user %d: %w", userID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("cascade delete transactions of user %d: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user cascade: %w", err)
	}

	slog.InfoContext(ctx, "User cascade delete committed", "user_id", userID)
	return nil
}

// --- snapshot import ---

// ImportSnapshot upserts every record by its exported id in one grouped
// transaction. Foreign keys are not validated and colliding ids are
// overwritten, mirroring the export/import contract.
func (r *SQLiteRepository) ImportSnapshot(ctx context.Context, accounts []core.Account, txs []core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, a := range accounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO accounts (id, user_id, name, description, balance_cents) VALUES (?, ?, ?, ?, ?)`,
			a.ID, nullID(a.UserID), a.Name, a.Description, a.Balance.Cents); err != nil {
			return fmt.Errorf("import account %d: %w", a.ID, err)
		}
	}
	for _, t := range txs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO transactions (id, account_id, user_id, type, sign, amount_cents, date, description) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.AccountID, nullID(t.UserID), t.Type, string(t.Sign), t.Amount.Cents, t.Date, t.Description); err != nil {
			return fmt.Errorf("import transaction %d: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot imported",
		"accounts", len(accounts),
		"transactions", len(txs))
	return nil
}
