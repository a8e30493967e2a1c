package http

import (
	"net/http"

	"finanzas/internal/core"
)

// userPayload distinguishes omitted fields (nil, keep the stored
// value) from present-but-empty ones, which clear the field. Name and
// lastName are required non-empty, so a plain string suffices there.
type userPayload struct {
	Name              string  `json:"name"`
	LastName          string  `json:"lastName"`
	PhotoData         *string `json:"photoData"`
	SelectedAccountID *int64  `json:"selectedAccountId"`
}

type userDTO struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	LastName          string `json:"lastName"`
	PhotoData         string `json:"photoData,omitempty"`
	SelectedAccountID int64  `json:"selectedAccountId,omitempty"`
}

func toUserDTO(u core.User) userDTO {
	return userDTO{
		ID:                u.ID,
		Name:              u.Name,
		LastName:          u.LastName,
		PhotoData:         u.PhotoData,
		SelectedAccountID: u.SelectedAccountID,
	}
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.ledger.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in userPayload
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	var photo string
	if in.PhotoData != nil {
		photo = *in.PhotoData
	}
	u, err := s.ledger.CreateUser(r.Context(), core.User{
		Name:      in.Name,
		LastName:  in.LastName,
		PhotoData: photo,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	u, err := s.ledger.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	var in userPayload
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	u, err := s.ledger.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.LastName != "" {
		u.LastName = in.LastName
	}
	if in.PhotoData != nil {
		u.PhotoData = *in.PhotoData
	}
	if in.SelectedAccountID != nil {
		u.SelectedAccountID = *in.SelectedAccountID
	}
	if err := s.ledger.UpdateUser(r.Context(), u); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	// The cascade removes the user's accounts, so their cached
	// summaries must go too. Listed before the delete; afterwards the
	// ownership rows are gone.
	accounts, err := s.ledger.ListAccountsByUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.ledger.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	for _, a := range accounts {
		s.invalidateSummary(a.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}
