package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

func newTestService(t *testing.T) *LedgerService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finanzas.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewLedgerService(repo, NewSession())
}

func mustUser(t *testing.T, s *LedgerService, name string) core.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), core.User{Name: name})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func mustAccount(t *testing.T, s *LedgerService, userID int64, name string) core.Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), core.Account{UserID: userID, Name: name})
	if err != nil {
		t.Fatalf("create account %s: %v", name, err)
	}
	return a
}

func mustSave(t *testing.T, s *LedgerService, accountID int64, typ string, cents int64) core.Transaction {
	t.Helper()
	tx, err := s.SaveTransaction(context.Background(), Create(), TransactionInput{
		AccountID: accountID,
		Type:      typ,
		Amount:    core.Money{Cents: cents},
	})
	if err != nil {
		t.Fatalf("save transaction: %v", err)
	}
	return tx
}

func balanceOf(t *testing.T, s *LedgerService, accountID int64) int64 {
	t.Helper()
	a, err := s.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance.Cents
}

func TestCreateTransactionUpdatesCachedBalance(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "Caja")

	tx := mustSave(t, s, a.ID, "entrada", 5000)
	if tx.Sign != core.SignPlus {
		t.Fatalf("sign not copied from registry: %q", tx.Sign)
	}
	if tx.UserID != u.ID {
		t.Fatalf("owner not mirrored onto transaction: %d", tx.UserID)
	}
	if got := balanceOf(t, s, a.ID); got != 5000 {
		t.Fatalf("balance after income: got %d, want 5000", got)
	}

	mustSave(t, s, a.ID, "salida", 1500)
	if got := balanceOf(t, s, a.ID); got != 3500 {
		t.Fatalf("balance after expense: got %d, want 3500", got)
	}
}

func TestSaveTransactionUnknownTypeAborts(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "Caja")

	_, err := s.SaveTransaction(context.Background(), Create(), TransactionInput{
		AccountID: a.ID,
		Type:      "inexistente",
		Amount:    core.Money{Cents: 100},
	})
	if !IsNotFound(err) {
		t.Fatalf("unknown type: got %v, want not found", err)
	}

	// Abort without side effect: no record written, balance untouched.
	view, err := s.ViewAccount(context.Background(), a.ID, "", "")
	if err != nil {
		t.Fatalf("view account: %v", err)
	}
	if len(view.Transactions) != 0 || balanceOf(t, s, a.ID) != 0 {
		t.Fatalf("aborted save left side effects: %d transactions, balance %d",
			len(view.Transactions), balanceOf(t, s, a.ID))
	}
}

func TestRefreshAccountBalanceIdempotent(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "Caja")
	mustSave(t, s, a.ID, "entrada", 10000)
	mustSave(t, s, a.ID, "salida", 3000)

	ctx := context.Background()
	first, err := s.RefreshAccountBalance(ctx, a.ID)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	second, err := s.RefreshAccountBalance(ctx, a.ID)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if first != second || first.Cents != 7000 {
		t.Fatalf("refresh not idempotent: %v then %v", first, second)
	}
	if got := balanceOf(t, s, a.ID); got != 7000 {
		t.Fatalf("cached balance: got %d, want 7000", got)
	}
}

func TestRefreshVanishedAccountIsNoop(t *testing.T) {
	s := newTestService(t)
	if _, err := s.RefreshAccountBalance(context.Background(), 999); err != nil {
		t.Fatalf("refresh of missing account errored: %v", err)
	}
}

func TestEditTypeFlipsSignAndBalance(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "Caja")

	mustSave(t, s, a.ID, "entrada", 5000)
	tx := mustSave(t, s, a.ID, "entrada", 5000)
	if got := balanceOf(t, s, a.ID); got != 10000 {
		t.Fatalf("setup balance: got %d, want 10000", got)
	}

	// 100 with one +50 edited to a -50 type: 100 - 50 - 50 = 0.
	edited, err := s.SaveTransaction(context.Background(), Edit(tx.ID), TransactionInput{Type: "salida"})
	if err != nil {
		t.Fatalf("edit transaction: %v", err)
	}
	if edited.Sign != core.SignMinus {
		t.Fatalf("sign after type change: %q", edited.Sign)
	}
	if got := balanceOf(t, s, a.ID); got != 0 {
		t.Fatalf("balance after sign flip: got %d, want 0", got)
	}
}

func TestEditKeepsStaleSignWhenTypeUnchanged(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "Caja")
	ctx := context.Background()

	tx := mustSave(t, s, a.ID, "entrada", 5000)

	// Retroactively flipping the registered sign must not rewrite
	// recorded transactions, even through an amount-only edit.
	if _, err := s.UpsertType(ctx, "entrada", core.SignMinus); err != nil {
		t.Fatalf("upsert type: %v", err)
	}
	edited, err := s.SaveTransaction(ctx, Edit(tx.ID), TransactionInput{Amount: core.Money{Cents: 7000}})
	if err != nil {
		t.Fatalf("edit transaction: %v", err)
	}
	if edited.Sign != core.SignPlus {
		t.Fatalf("stale sign rewritten on amount edit: %q", edited.Sign)
	}
	if got := balanceOf(t, s, a.ID); got != 7000 {
		t.Fatalf("balance: got %d, want 7000", got)
	}
}

func TestDeleteTypeOrphansKeepTheirSign(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "Caja")
	ctx := context.Background()

	tx := mustSave(t, s, a.ID, "entrada prestamo", 2000)
	if err := s.DeleteType(ctx, "entrada prestamo"); err != nil {
		t.Fatalf("delete type: %v", err)
	}

	got, err := s.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Sign != core.SignPlus || got.Type != "entrada prestamo" {
		t.Fatalf("orphaned transaction changed: %+v", got)
	}
	if balanceOf(t, s, a.ID) != 2000 {
		t.Fatalf("balance changed after type deletion")
	}
}

func TestDeleteTransactionRefreshesBalance(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "Caja")
	ctx := context.Background()

	tx := mustSave(t, s, a.ID, "entrada", 5000)
	mustSave(t, s, a.ID, "entrada", 1000)

	if err := s.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if got := balanceOf(t, s, a.ID); got != 1000 {
		t.Fatalf("balance after delete: got %d, want 1000", got)
	}

	if err := s.DeleteTransaction(ctx, tx.ID); !IsNotFound(err) {
		t.Fatalf("double delete: got %v, want not found", err)
	}
}

func TestFilteredViewDivergesFromPersistedBalance(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "Caja")
	ctx := context.Background()

	// Dates are fixed at creation, so backdated rows go through the
	// store; the service then refreshes the cache.
	for _, tc := range []struct {
		sign  core.Sign
		typ   string
		cents int64
		date  string
	}{
		{core.SignPlus, "entrada", 10000, "2024-01-10T08:30:00Z"},
		{core.SignMinus, "salida", 3000, "2024-02-05T19:45:00Z"},
	} {
		_, err := s.store.AddTransaction(ctx, core.Transaction{
			AccountID: a.ID, UserID: u.ID, Type: tc.typ, Sign: tc.sign,
			Amount: core.Money{Cents: tc.cents}, Date: tc.date,
		})
		if err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}
	if _, err := s.RefreshAccountBalance(ctx, a.ID); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	view, err := s.ViewAccount(ctx, a.ID, "", "2024-01-31")
	if err != nil {
		t.Fatalf("view account: %v", err)
	}
	if view.FilteredTotal.Cents != 10000 {
		t.Fatalf("filtered total: got %d, want 10000", view.FilteredTotal.Cents)
	}
	if view.Account.Balance.Cents != 7000 {
		t.Fatalf("persisted balance: got %d, want 7000", view.Account.Balance.Cents)
	}
	if len(view.Transactions) != 1 {
		t.Fatalf("filtered listing: got %d transactions, want 1", len(view.Transactions))
	}
}

func TestViewAccountDisplayOrdering(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "Caja")
	ctx := context.Background()

	dates := []string{
		"2024-01-01T10:00:00Z",
		"2024-03-01T10:00:00Z",
		"2024-03-01T10:00:00Z", // tie with previous, later insertion
		"2024-02-01T10:00:00Z",
	}
	var ids []int64
	for _, d := range dates {
		id, err := s.store.AddTransaction(ctx, core.Transaction{
			AccountID: a.ID, UserID: u.ID, Type: "entrada", Sign: core.SignPlus,
			Amount: core.Money{Cents: 100}, Date: d,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids = append(ids, id)
	}

	view, err := s.ViewAccount(ctx, a.ID, "", "")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	want := []int64{ids[1], ids[2], ids[3], ids[0]}
	for i, id := range want {
		if view.Transactions[i].ID != id {
			t.Fatalf("position %d: got id %d, want %d", i, view.Transactions[i].ID, id)
		}
	}
}

func TestDeleteAccountCascadeAndSession(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "A")
	b := mustAccount(t, s, u.ID, "B")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mustSave(t, s, a.ID, "entrada", 100)
	}
	for i := 0; i < 2; i++ {
		mustSave(t, s, b.ID, "entrada", 100)
	}
	s.Session().SelectAccount(a.ID)

	if err := s.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if _, err := s.GetAccount(ctx, a.ID); !IsNotFound(err) {
		t.Fatalf("account A still readable: %v", err)
	}
	viewB, err := s.ViewAccount(ctx, b.ID, "", "")
	if err != nil {
		t.Fatalf("view B: %v", err)
	}
	if len(viewB.Transactions) != 2 {
		t.Fatalf("account B transactions: got %d, want 2", len(viewB.Transactions))
	}
	if s.Session().Get().SelectedAccountID != 0 {
		t.Fatalf("session still points at deleted account")
	}
}

func TestDeleteUserGuardAndReselect(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	ana := mustUser(t, s, "Ana")
	luis := mustUser(t, s, "Luis")
	accA := mustAccount(t, s, ana.ID, "Caja Ana")
	accL := mustAccount(t, s, luis.ID, "Caja Luis")
	mustSave(t, s, accA.ID, "entrada", 100)
	mustSave(t, s, accL.ID, "entrada", 200)

	// Ana was first, so she is current.
	if got := s.Session().Get().CurrentUserID; got != ana.ID {
		t.Fatalf("current user: got %d, want %d", got, ana.ID)
	}

	if err := s.DeleteUser(ctx, ana.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if got := s.Session().Get().CurrentUserID; got != luis.ID {
		t.Fatalf("reselected user: got %d, want %d", got, luis.ID)
	}
	if accs, _ := s.ListAccountsByUser(ctx, ana.ID); len(accs) != 0 {
		t.Fatalf("deleted user's accounts remain: %d", len(accs))
	}
	viewL, err := s.ViewAccount(ctx, accL.ID, "", "")
	if err != nil || len(viewL.Transactions) != 1 {
		t.Fatalf("surviving user's data affected: %v, %d transactions", err, len(viewL.Transactions))
	}

	// Last remaining user is protected; nothing changes.
	if err := s.DeleteUser(ctx, luis.ID); !errors.Is(err, core.ErrLastUser) {
		t.Fatalf("last-user delete: got %v, want ErrLastUser", err)
	}
	if _, err := s.GetUser(ctx, luis.ID); err != nil {
		t.Fatalf("last user vanished: %v", err)
	}
}

func TestInitSession(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// Empty store: onboarding.
	if err := s.InitSession(ctx); err != nil {
		t.Fatalf("init session: %v", err)
	}
	if s.Session().Get().CurrentUserID != 0 {
		t.Fatalf("expected onboarding state")
	}

	ana := mustUser(t, s, "Ana")
	mustUser(t, s, "Luis")
	acc := mustAccount(t, s, ana.ID, "Caja")
	if err := s.UpdateUser(ctx, core.User{ID: ana.ID, Name: "Ana", SelectedAccountID: acc.ID}); err != nil {
		t.Fatalf("update user: %v", err)
	}

	if err := s.InitSession(ctx); err != nil {
		t.Fatalf("init session: %v", err)
	}
	state := s.Session().Get()
	if state.CurrentUserID != ana.ID || state.SelectedAccountID != acc.ID {
		t.Fatalf("session: %+v", state)
	}
}

func TestAccountSummary(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")
	a := mustAccount(t, s, u.ID, "Caja")

	mustSave(t, s, a.ID, "entrada", 10000)
	mustSave(t, s, a.ID, "salida", 2500)
	mustSave(t, s, a.ID, "entrada", 500)

	sum, err := s.AccountSummary(context.Background(), a.ID, "", "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Total.Cents != 8000 {
		t.Fatalf("summary total: got %d, want 8000", sum.Total.Cents)
	}
	if len(sum.ByType) != 2 {
		t.Fatalf("summary rows: got %d, want 2", len(sum.ByType))
	}
}

func TestUpdateAccountDescription(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "Ana")

	a, err := s.CreateAccount(context.Background(), core.Account{UserID: u.ID, Name: "Caja", Description: "efectivo"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	// Nil description keeps the stored one.
	a, err = s.UpdateAccount(context.Background(), a.ID, "Caja fuerte", nil)
	if err != nil {
		t.Fatalf("update name: %v", err)
	}
	if a.Name != "Caja fuerte" || a.Description != "efectivo" {
		t.Fatalf("after rename: got %q/%q", a.Name, a.Description)
	}

	// An empty non-nil description clears it.
	empty := ""
	a, err = s.UpdateAccount(context.Background(), a.ID, "", &empty)
	if err != nil {
		t.Fatalf("clear description: %v", err)
	}
	if a.Name != "Caja fuerte" || a.Description != "" {
		t.Fatalf("after clear: got %q/%q", a.Name, a.Description)
	}
}
