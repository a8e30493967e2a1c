package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"finanzas/internal/core"
)

// Snapshot is the bulk export document: the full accounts and
// transactions collections in one JSON structure. Import accepts the
// same shape and upserts every record by id, without validating
// foreign keys or resolving id collisions across namespaces.
type Snapshot struct {
	ID           string              `json:"id"`
	ExportedAt   string              `json:"exportedAt"`
	Accounts     []AccountRecord     `json:"accounts"`
	Transactions []TransactionRecord `json:"transactions"`
}

type AccountRecord struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"userId,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	BalanceCents int64  `json:"balanceCents"`
}

type TransactionRecord struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"accountId"`
	UserID      int64  `json:"userId,omitempty"`
	Type        string `json:"type"`
	Sign        string `json:"sign"`
	AmountCents int64  `json:"amountCents"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

// Export assembles a snapshot of all accounts and transactions.
func (s *LedgerService) Export(ctx context.Context) (Snapshot, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("export accounts: %w", err)
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("export transactions: %w", err)
	}

	snap := Snapshot{
		ID:         uuid.NewString(),
		ExportedAt: core.NewTimestamp(),
	}
	for _, a := range accounts {
		snap.Accounts = append(snap.Accounts, AccountRecord{
			ID:           a.ID,
			UserID:       a.UserID,
			Name:         a.Name,
			Description:  a.Description,
			BalanceCents: a.Balance.Cents,
		})
	}
	for _, t := range txs {
		snap.Transactions = append(snap.Transactions, TransactionRecord{
			ID:          t.ID,
			AccountID:   t.AccountID,
			UserID:      t.UserID,
			Type:        t.Type,
			Sign:        string(t.Sign),
			AmountCents: t.Amount.Cents,
			Date:        t.Date,
			Description: t.Description,
		})
	}

	slog.InfoContext(ctx, "Snapshot exported",
		"snapshot_id", snap.ID,
		"accounts", len(snap.Accounts),
		"transactions", len(snap.Transactions))
	return snap, nil
}

// Import upserts the snapshot's records by id in one grouped store
// transaction, then refreshes the cached balance of every imported
// account.
func (s *LedgerService) Import(ctx context.Context, snap Snapshot) error {
	accounts := make([]core.Account, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		accounts = append(accounts, core.Account{
			ID:          a.ID,
			UserID:      a.UserID,
			Name:        a.Name,
			Description: a.Description,
			Balance:     core.Money{Cents: a.BalanceCents},
		})
	}
	txs := make([]core.Transaction, 0, len(snap.Transactions))
	for _, t := range snap.Transactions {
		txs = append(txs, core.Transaction{
			ID:          t.ID,
			AccountID:   t.AccountID,
			UserID:      t.UserID,
			Type:        t.Type,
			Sign:        core.Sign(t.Sign),
			Amount:      core.Money{Cents: t.AmountCents},
			Date:        t.Date,
			Description: t.Description,
		})
	}

	if err := s.store.ImportSnapshot(ctx, accounts, txs); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	for _, a := range accounts {
		if _, err := s.RefreshAccountBalance(ctx, a.ID); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Snapshot imported",
		"snapshot_id", snap.ID,
		"accounts", len(accounts),
		"transactions", len(txs))
	return nil
}
