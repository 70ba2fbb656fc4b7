package http

import (
	"net/http"
)

type categoryRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

func (s *Server) handleCategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.categories.Tree(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tree)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category, err := s.categories.Create(r.Context(), ownerFrom(r.Context()), req.Name, req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category, err := s.categories.Update(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), req.Name, req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.Delete(r.Context(), ownerFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSeedCategories installs the default taxonomy for a fresh owner.
// It is a no-op when the owner already has categories.
func (s *Server) handleSeedCategories(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	if err := s.categories.EnsureDefaults(r.Context(), owner); err != nil {
		writeError(w, r, err)
		return
	}

	tree, err := s.categories.Tree(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tree)
}
