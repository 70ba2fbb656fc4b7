package http

import (
	"net/http"

	"bookkeeper/internal/services"
)

// handleImportParse accepts a raw CSV body, parses it into review candidates
// and parks them in staging. Nothing touches the ledger until commit.
func (s *Server) handleImportParse(w http.ResponseWriter, r *http.Request) {
	batch, err := s.imports.Parse(r.Context(), ownerFrom(r.Context()), r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, batch)
}

func (s *Server) handleImportBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.imports.Batch(r.Context(), ownerFrom(r.Context()), r.PathValue("batchId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, batch)
}

type importCommitRequest struct {
	AccountID   string                `json:"accountId"`
	Assignments []services.Assignment `json:"assignments"`
}

func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	var req importCommitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.imports.Commit(r.Context(), ownerFrom(r.Context()), r.PathValue("batchId"), req.AccountID, req.Assignments)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(result.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, r, status, result)
}

func (s *Server) handleImportDiscard(w http.ResponseWriter, r *http.Request) {
	s.imports.Discard(r.Context(), ownerFrom(r.Context()), r.PathValue("batchId"))
	w.WriteHeader(http.StatusNoContent)
}
