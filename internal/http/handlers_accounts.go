package http

import (
	"net/http"

	"finanzas/internal/core"
)

// accountPayload's description is a pointer so an update can clear it:
// nil means keep the stored value, "" means clear.
type accountPayload struct {
	UserID      int64   `json:"userId"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type accountDTO struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"userId,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	BalanceCents int64  `json:"balanceCents"`
	Balance      string `json:"balance"`
}

func toAccountDTO(a core.Account) accountDTO {
	return accountDTO{
		ID:           a.ID,
		UserID:       a.UserID,
		Name:         a.Name,
		Description:  a.Description,
		BalanceCents: a.Balance.Cents,
		Balance:      a.Balance.String(),
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	var (
		accounts []core.Account
		err      error
	)
	if userID, ok := queryID(r, "userId"); ok {
		accounts, err = s.ledger.ListAccountsByUser(r.Context(), userID)
	} else {
		accounts, err = s.ledger.ListAccounts(r.Context())
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountDTO(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in accountPayload
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	var description string
	if in.Description != nil {
		description = *in.Description
	}
	a, err := s.ledger.CreateAccount(r.Context(), core.Account{
		UserID:      in.UserID,
		Name:        in.Name,
		Description: description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(a))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid account id")
		return
	}
	a, err := s.ledger.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid account id")
		return
	}
	var in accountPayload
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	a, err := s.ledger.UpdateAccount(r.Context(), id, in.Name, in.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid account id")
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.invalidateSummary(id)
	w.WriteHeader(http.StatusNoContent)
}

type summaryDTO struct {
	AccountID  int64           `json:"accountId"`
	TotalCents int64           `json:"totalCents"`
	Total      string          `json:"total"`
	ByType     []typeAmountDTO `json:"byType"`
}

type typeAmountDTO struct {
	Type        string `json:"type"`
	AmountCents int64  `json:"amountCents"`
	Amount      string `json:"amount"`
}

func toSummaryDTO(accountID int64, sum core.Summary) summaryDTO {
	out := summaryDTO{
		AccountID:  accountID,
		TotalCents: sum.Total.Cents,
		Total:      sum.Total.String(),
		ByType:     make([]typeAmountDTO, 0, len(sum.ByType)),
	}
	for _, ta := range sum.ByType {
		out.ByType = append(out.ByType, typeAmountDTO{
			Type:        ta.Type,
			AmountCents: ta.Amount.Cents,
			Amount:      ta.Amount.String(),
		})
	}
	return out
}

func (s *Server) handleAccountSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid account id")
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

	// Only unfiltered summaries are cached; date-filtered requests
	// always hit the store.
	if from == "" && to == "" {
		if sum, ok := s.summaryCache.Get(s.summaryKey(id)); ok {
			writeJSON(w, http.StatusOK, toSummaryDTO(id, sum))
			return
		}
	}

	sum, err := s.ledger.AccountSummary(r.Context(), id, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if from == "" && to == "" {
		s.summaryCache.Set(s.summaryKey(id), sum)
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(id, sum))
}
