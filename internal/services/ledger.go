// Package services orchestrates ledger operations on top of the
// storage layer: user and account lifecycle with cascade cleanup, the
// transaction save path with its balance refresh, the type registry and
// snapshot import/export.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// LedgerService owns every mutation of the ledger. Each mutating
// operation leaves the affected account's cached balance equal to the
// signed sum of its transactions before returning.
type LedgerService struct {
	store   *storage.SQLiteRepository
	session *Session
}

func NewLedgerService(store *storage.SQLiteRepository, session *Session) *LedgerService {
	return &LedgerService{
		store:   store,
		session: session,
	}
}

func (s *LedgerService) Session() *Session {
	return s.session
}

func (s *LedgerService) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("close ledger store: %w", err)
		}
	}
	return nil
}

// InitSession selects the current user at startup: the lowest-id user,
// with that user's last viewed account. An empty store leaves the
// session in the onboarding state.
func (s *LedgerService) InitSession(ctx context.Context) error {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	if len(users) == 0 {
		s.session.Reset()
		slog.InfoContext(ctx, "No users found, entering onboarding")
		return nil
	}
	u := users[0]
	s.session.Set(SessionState{CurrentUserID: u.ID, SelectedAccountID: u.SelectedAccountID})
	slog.InfoContext(ctx, "Session initialized", "user_id", u.ID, "account_id", u.SelectedAccountID)
	return nil
}

// --- users ---

func (s *LedgerService) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	id, err := s.store.AddUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id

	// First user becomes the current one (onboarding completion).
	if s.session.Get().CurrentUserID == 0 {
		s.session.Set(SessionState{CurrentUserID: id})
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "name", u.Name)
	return u, nil
}

func (s *LedgerService) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *LedgerService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *LedgerService) UpdateUser(ctx context.Context, u core.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if _, err := s.store.GetUser(ctx, u.ID); err != nil {
		return err
	}
	if err := s.store.PutUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// DeleteUser cascades to the user's accounts and transactions. The last
// remaining user cannot be deleted. If the deleted user was current,
// the remaining user with the lowest id takes over and the session is
// re-initialized.
func (s *LedgerService) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return err
	}
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n <= 1 {
		return core.ErrLastUser
	}

	if err := s.store.DeleteUserCascade(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if s.session.Get().CurrentUserID == userID {
		users, err := s.store.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("reselect user: %w", err)
		}
		if len(users) == 0 {
			// Unreachable behind the last-user guard, handled anyway.
			s.session.Reset()
			return nil
		}
		next := users[0]
		s.session.Set(SessionState{CurrentUserID: next.ID, SelectedAccountID: next.SelectedAccountID})
		slog.InfoContext(ctx, "Current user deleted, reselected", "user_id", next.ID)
	}
	return nil
}

// --- accounts ---

func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if _, err := s.store.GetUser(ctx, a.UserID); err != nil {
		return core.Account{}, fmt.Errorf("account owner: %w", err)
	}
	a.Balance = core.Money{}
	id, err := s.store.AddAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID = id

	slog.InfoContext(ctx, "Account created", "account_id", id, "user_id", a.UserID, "name", a.Name)
	return a, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

func (s *LedgerService) ListAccountsByUser(ctx context.Context, userID int64) ([]core.Account, error) {
	return s.store.ListAccountsByUser(ctx, userID)
}

// UpdateAccount changes name and description. Owner and cached balance
// are not editable through this path.
// UpdateAccount renames an account. An empty name keeps the stored
// one; a nil description keeps the stored one while an empty non-nil
// description clears it.
func (s *LedgerService) UpdateAccount(ctx context.Context, id int64, name string, description *string) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	if name != "" {
		a.Name = name
	}
	if description != nil {
		a.Description = *description
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.store.PutAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return a, nil
}

// DeleteAccount removes the account and all of its transactions in one
// grouped transaction.
func (s *LedgerService) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.store.DeleteAccountCascade(ctx, id); err != nil {
		return err
	}
	s.session.ClearAccountIf(id)
	return nil
}

// --- balance engine ---

// RefreshAccountBalance recomputes the cached balance from the full,
// unfiltered transaction set and persists it. A vanished account makes
// the refresh a no-op; concurrent deletes are not an error.
func (s *LedgerService) RefreshAccountBalance(ctx context.Context, accountID int64) (core.Money, error) {
	txs, err := s.store.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return core.Money{}, fmt.Errorf("refresh balance: %w", err)
	}
	balance := core.ComputeBalance(txs)
	ok, err := s.store.SetAccountBalance(ctx, accountID, balance)
	if err != nil {
		return core.Money{}, fmt.Errorf("refresh balance: %w", err)
	}
	if !ok {
		slog.DebugContext(ctx, "Balance refresh skipped, account gone", "account_id", accountID)
	}
	return balance, nil
}

// AccountView is what a movements screen needs: the account, its
// transactions in display order, and the running total of the filtered
// subset. The account's Balance field stays the unfiltered cache.
type AccountView struct {
	Account       core.Account
	Transactions  []core.Transaction
	FilteredTotal core.Money
}

// ViewAccount lists an account's transactions with an optional
// inclusive [from, to] day filter. Filtering affects the displayed
// total only, never the persisted balance.
func (s *LedgerService) ViewAccount(ctx context.Context, accountID int64, from, to string) (AccountView, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return AccountView{}, err
	}
	txs, err := s.store.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return AccountView{}, fmt.Errorf("view account: %w", err)
	}
	filtered := core.FilterByDateRange(txs, from, to)
	view := AccountView{
		Account:       a,
		Transactions:  append([]core.Transaction(nil), filtered...),
		FilteredTotal: core.ComputeBalance(filtered),
	}
	core.SortForDisplay(view.Transactions)
	return view, nil
}

// AccountSummary aggregates signed per-type totals over an optionally
// date-filtered transaction set, for the chart layer.
func (s *LedgerService) AccountSummary(ctx context.Context, accountID int64, from, to string) (core.Summary, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return core.Summary{}, err
	}
	txs, err := s.store.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("account summary: %w", err)
	}
	return core.Summarize(core.FilterByDateRange(txs, from, to)), nil
}

// --- transactions ---

// SaveMode selects between creating a new transaction and editing an
// existing one; one save routine branches on it instead of swapping
// handlers.
type SaveMode struct {
	editID int64
}

func Create() SaveMode { return SaveMode{} }

func Edit(id int64) SaveMode { return SaveMode{editID: id} }

func (m SaveMode) IsEdit() bool { return m.editID != 0 }

// TransactionInput carries the user-editable transaction fields.
type TransactionInput struct {
	AccountID   int64
	Type        string
	Amount      core.Money
	Description string
}

// SaveTransaction creates or edits a transaction and refreshes the
// owning account's cached balance. The sign is copied from the type
// registry at write time; on edit it is re-read only when the type
// changes. An unknown type aborts before any write. Date and account
// are fixed at creation.
func (s *LedgerService) SaveTransaction(ctx context.Context, mode SaveMode, in TransactionInput) (core.Transaction, error) {
	if mode.IsEdit() {
		return s.editTransaction(ctx, mode.editID, in)
	}
	return s.createTransaction(ctx, in)
}

func (s *LedgerService) createTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	account, err := s.store.GetAccount(ctx, in.AccountID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction account: %w", err)
	}
	tt, err := s.store.GetType(ctx, in.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction type %q: %w", in.Type, err)
	}

	t := core.Transaction{
		AccountID:   account.ID,
		UserID:      account.UserID, // defense-in-depth, mirrors the owner
		Type:        tt.Type,
		Sign:        tt.Sign,
		Amount:      in.Amount,
		Date:        core.NewTimestamp(),
		Description: in.Description,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := s.store.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id

	if _, err := s.RefreshAccountBalance(ctx, t.AccountID); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", id,
		"account_id", t.AccountID,
		"transaction_type", t.Type,
		"sign", string(t.Sign),
		"amount_cents", t.Amount.Cents)
	return t, nil
}

func (s *LedgerService) editTransaction(ctx context.Context, id int64, in TransactionInput) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	if in.Amount.Cents != 0 {
		t.Amount = in.Amount
	}
	if in.Description != "" {
		t.Description = in.Description
	}
	if in.Type != "" && in.Type != t.Type {
		tt, err := s.store.GetType(ctx, in.Type)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("transaction type %q: %w", in.Type, err)
		}
		t.Type = tt.Type
		t.Sign = tt.Sign
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.PutTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if _, err := s.RefreshAccountBalance(ctx, t.AccountID); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"transaction_id", t.ID,
		"account_id", t.AccountID,
		"transaction_type", t.Type,
		"sign", string(t.Sign))
	return t, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// DeleteTransaction removes one transaction and refreshes the owning
// account's balance. Deleting an already-gone transaction reports
// not found instead of silently no-opping.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if _, err := s.RefreshAccountBalance(ctx, t.AccountID); err != nil {
		return err
	}
	return nil
}

// --- type registry ---

func (s *LedgerService) UpsertType(ctx context.Context, name string, sign core.Sign) (core.TransactionType, error) {
	tt := core.TransactionType{Type: name, Sign: sign}
	if err := tt.Validate(); err != nil {
		return core.TransactionType{}, err
	}
	if err := s.store.UpsertType(ctx, tt); err != nil {
		return core.TransactionType{}, err
	}
	return tt, nil
}

func (s *LedgerService) RenameType(ctx context.Context, oldName string, tt core.TransactionType) error {
	if err := tt.Validate(); err != nil {
		return err
	}
	return s.store.RenameType(ctx, oldName, tt)
}

func (s *LedgerService) DeleteType(ctx context.Context, name string) error {
	return s.store.DeleteType(ctx, name)
}

func (s *LedgerService) ListTypes(ctx context.Context) ([]core.TransactionType, error) {
	return s.store.ListTypes(ctx)
}

// IsNotFound reports whether err is the store's not-found outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
