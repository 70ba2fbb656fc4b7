package http

import (
	"net/http"

	"bookkeeper/internal/export"
	"bookkeeper/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := s.reports.ListTransactions(r.Context(), ownerFrom(r.Context()), filter, parsePage(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
		if err := export.WriteTransactionsCSV(w, page.Items); err != nil {
			writeError(w, r, err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.CreateTransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.ledger.CreateTransaction(r.Context(), ownerFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.UpdateTransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.ledger.UpdateTransaction(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), ownerFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// handleBulkDelete removes a set of transactions atomically: either every id
// is deleted or none are.
func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.ledger.BulkDelete(r.Context(), ownerFrom(r.Context()), req.IDs); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkCategoryRequest struct {
	IDs                  []string `json:"ids"`
	CategoryID           string   `json:"categoryId"`
	CounterpartAccountID string   `json:"transferCounterpartAccountId,omitempty"`
}

func (s *Server) handleBulkCategory(w http.ResponseWriter, r *http.Request) {
	var req bulkCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.ledger.BulkUpdateCategory(r.Context(), ownerFrom(r.Context()), req.IDs, req.CategoryID, req.CounterpartAccountID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
