package http

import (
	"net/http"

	"bookkeeper/internal/services"
)

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var in services.CreateTransferInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := s.transfers.Create(r.Context(), ownerFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, pair)
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	pair, err := s.transfers.Get(r.Context(), ownerFrom(r.Context()), r.PathValue("pairId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pair)
}

func (s *Server) handleUpdateTransfer(w http.ResponseWriter, r *http.Request) {
	var in services.UpdateTransferInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := s.transfers.Update(r.Context(), ownerFrom(r.Context()), r.PathValue("pairId"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pair)
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	if err := s.transfers.Delete(r.Context(), ownerFrom(r.Context()), r.PathValue("pairId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
