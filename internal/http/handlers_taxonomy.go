package http

import (
	"errors"
	"log/slog"
	"net/http"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

type createCategoryRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId"`
}

type createLabelRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, user core.User) {
	categories, err := s.taxonomy.ListCategories(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "could not load categories")
		return
	}

	dtos := make([]categoryDTO, 0, len(categories))
	for _, c := range categories {
		dtos = append(dtos, categoryDTO{ID: c.ID, ParentID: c.ParentID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createCategoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.taxonomy.CreateCategory(r.Context(), core.Category{
		UserID:   user.ID,
		ParentID: req.ParentID,
		Name:     req.Name,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := s.taxonomy.DeleteCategory(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete category failed", "error", err, "user_id", user.ID, "category_id", id)
		writeError(w, http.StatusInternalServerError, "could not delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request, user core.User) {
	labels, err := s.taxonomy.ListLabels(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List labels failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "could not load labels")
		return
	}

	dtos := make([]labelDTO, 0, len(labels))
	for _, l := range labels {
		dtos = append(dtos, labelDTO{ID: l.ID, Name: l.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createLabelRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.taxonomy.CreateLabel(r.Context(), core.Label{UserID: user.ID, Name: req.Name})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request, user core.User) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid label id")
		return
	}

	if err := s.taxonomy.DeleteLabel(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "label not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete label failed", "error", err, "user_id", user.ID, "label_id", id)
		writeError(w, http.StatusInternalServerError, "could not delete label")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
