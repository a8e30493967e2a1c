package http

import (
	"net/http"

	"finanzas/internal/services"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="finanzas-export.json"`)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var snap services.Snapshot
	if err := decodeBody(r, &snap); err != nil {
		badRequest(w, "invalid snapshot body")
		return
	}
	if err := s.ledger.Import(r.Context(), snap); err != nil {
		writeServiceError(w, r, err)
		return
	}
	for _, a := range snap.Accounts {
		s.invalidateSummary(a.ID)
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"accounts":     len(snap.Accounts),
		"transactions": len(snap.Transactions),
	})
}
