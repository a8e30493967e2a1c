package http

import (
	"net/http"

	"finanzas/internal/core"
	"finanzas/internal/services"
)

type transactionPayload struct {
	AccountID   int64  `json:"accountId"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type transactionDTO struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"accountId"`
	UserID      int64  `json:"userId,omitempty"`
	Type        string `json:"type"`
	Sign        string `json:"sign"`
	AmountCents int64  `json:"amountCents"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:          t.ID,
		AccountID:   t.AccountID,
		UserID:      t.UserID,
		Type:        t.Type,
		Sign:        string(t.Sign),
		AmountCents: t.Amount.Cents,
		Amount:      t.Amount.String(),
		Date:        t.Date,
		Description: t.Description,
	}
}

type accountViewDTO struct {
	Account            accountDTO       `json:"account"`
	Transactions       []transactionDTO `json:"transactions"`
	FilteredTotalCents int64            `json:"filteredTotalCents"`
	FilteredTotal      string           `json:"filteredTotal"`
}

// handleListTransactions serves an account's movement list. The
// from/to filters narrow the listed rows and the filtered total, but
// never the account's persisted balance.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := queryID(r, "accountId")
	if !ok {
		badRequest(w, "accountId query parameter is required")
		return
	}
	from, ok := queryDay(r, "from")
	if !ok {
		badRequest(w, "invalid from date, want YYYY-MM-DD")
		return
	}
	to, ok := queryDay(r, "to")
	if !ok {
		badRequest(w, "invalid to date, want YYYY-MM-DD")
		return
	}

	view, err := s.ledger.ViewAccount(r.Context(), accountID, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := accountViewDTO{
		Account:            toAccountDTO(view.Account),
		Transactions:       make([]transactionDTO, 0, len(view.Transactions)),
		FilteredTotalCents: view.FilteredTotal.Cents,
		FilteredTotal:      view.FilteredTotal.String(),
	}
	for _, t := range view.Transactions {
		out.Transactions = append(out.Transactions, toTransactionDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionPayload
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		badRequest(w, "invalid amount: "+in.Amount)
		return
	}
	t, err := s.ledger.SaveTransaction(r.Context(), services.Create(), services.TransactionInput{
		AccountID:   in.AccountID,
		Type:        in.Type,
		Amount:      core.Money{Cents: cents},
		Description: in.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateSummary(t.AccountID)
	writeJSON(w, http.StatusCreated, toTransactionDTO(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}
	var in transactionPayload
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	// An omitted amount leaves the stored amount untouched.
	var amount core.Money
	if in.Amount != "" {
		cents, err := core.ParseDecimalToCents(in.Amount)
		if err != nil {
			badRequest(w, "invalid amount: "+in.Amount)
			return
		}
		amount = core.Money{Cents: cents}
	}
	t, err := s.ledger.SaveTransaction(r.Context(), services.Edit(id), services.TransactionInput{
		Type:        in.Type,
		Amount:      amount,
		Description: in.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateSummary(t.AccountID)
	writeJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}
	t, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateSummary(t.AccountID)
	w.WriteHeader(http.StatusNoContent)
}
