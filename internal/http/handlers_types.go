package http

import (
	"net/http"

	"finanzas/internal/core"
)

type typePayload struct {
	Type string `json:"type"`
	Sign string `json:"sign"`
}

type typeDTO struct {
	Type string `json:"type"`
	Sign string `json:"sign"`
}

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.ledger.ListTypes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]typeDTO, 0, len(types))
	for _, tt := range types {
		out = append(out, typeDTO{Type: tt.Type, Sign: string(tt.Sign)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertType(w http.ResponseWriter, r *http.Request) {
	var in typePayload
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	tt, err := s.ledger.UpsertType(r.Context(), in.Type, core.Sign(in.Sign))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, typeDTO{Type: tt.Type, Sign: string(tt.Sign)})
}

func (s *Server) handleRenameType(w http.ResponseWriter, r *http.Request) {
	oldName := r.PathValue("name")
	if oldName == "" {
		badRequest(w, "invalid type name")
		return
	}
	var in typePayload
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	tt := core.TransactionType{Type: in.Type, Sign: core.Sign(in.Sign)}
	if err := tt.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.ledger.RenameType(r.Context(), oldName, tt); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, typeDTO{Type: tt.Type, Sign: string(tt.Sign)})
}

func (s *Server) handleDeleteType(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		badRequest(w, "invalid type name")
		return
	}
	if err := s.ledger.DeleteType(r.Context(), name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
