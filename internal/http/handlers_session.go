package http

import (
	"net/http"

	"finanzas/internal/services"
)

type sessionDTO struct {
	CurrentUserID     int64 `json:"currentUserId"`
	SelectedAccountID int64 `json:"selectedAccountId,omitempty"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	state := s.ledger.Session().Get()
	writeJSON(w, http.StatusOK, sessionDTO{
		CurrentUserID:     state.CurrentUserID,
		SelectedAccountID: state.SelectedAccountID,
	})
}

// handleSetSession switches the current user and, optionally, the
// selected account. Both must refer to existing rows; the selection
// itself is advisory and carries no data semantics.
func (s *Server) handleSetSession(w http.ResponseWriter, r *http.Request) {
	var in sessionDTO
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if in.CurrentUserID != 0 {
		if _, err := s.ledger.GetUser(r.Context(), in.CurrentUserID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	if in.SelectedAccountID != 0 {
		if _, err := s.ledger.GetAccount(r.Context(), in.SelectedAccountID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	session := s.ledger.Session()
	state := session.Get()
	if in.CurrentUserID != 0 && in.CurrentUserID != state.CurrentUserID {
		state = services.SessionState{CurrentUserID: in.CurrentUserID}
	}
	if in.SelectedAccountID != 0 {
		state.SelectedAccountID = in.SelectedAccountID
	}
	session.Set(state)

	// Remember the selection on the user record so it survives a
	// restart.
	if state.CurrentUserID != 0 && state.SelectedAccountID != 0 {
		u, err := s.ledger.GetUser(r.Context(), state.CurrentUserID)
		if err == nil && u.SelectedAccountID != state.SelectedAccountID {
			u.SelectedAccountID = state.SelectedAccountID
			_ = s.ledger.UpdateUser(r.Context(), u)
		}
	}

	writeJSON(w, http.StatusOK, sessionDTO{
		CurrentUserID:     state.CurrentUserID,
		SelectedAccountID: state.SelectedAccountID,
	})
}
