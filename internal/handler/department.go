package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mleitner/wardtrack/internal/domain"
)

// handleListDepartments handles GET /departments.
func (s *Server) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	names, err := s.registry.Departments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": names})
}

// handleUpsertDepartment handles PUT /departments/{department}: create or
// replace a department and its full tag set.
func (s *Server) handleUpsertDepartment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeRequestError(w, "invalid JSON body")
		return
	}

	d, err := s.registry.UpsertDepartment(r.Context(), chi.URLParam(r, "department"), body.Tags)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDepartment handles DELETE /departments/{department}.
func (s *Server) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	err := s.registry.DeleteDepartment(r.Context(), chi.URLParam(r, "department"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundBody(w, "department not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRenameDepartment handles POST /departments/{department}/rename.
// When the new name normalizes to a different key, tag sets merge under the
// new key and the old entry is removed.
func (s *Server) handleRenameDepartment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeRequestError(w, "invalid JSON body")
		return
	}

	d, err := s.registry.RenameDepartment(r.Context(), chi.URLParam(r, "department"), body.Name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundBody(w, "department not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleListTags handles GET /departments/{department}/tags.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.registry.TagsByDepartment(r.Context(), chi.URLParam(r, "department"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundBody(w, "department not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// handleAddTag handles POST /departments/{department}/tags: register a tag,
// creating the department entry on first assignment.
func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tag string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeRequestError(w, "invalid JSON body")
		return
	}

	d, err := s.registry.AddTag(r.Context(), chi.URLParam(r, "department"), body.Tag)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// handleRemoveTag handles DELETE /departments/{department}/tags/{tag}.
func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	d, err := s.registry.RemoveTag(r.Context(), chi.URLParam(r, "department"), chi.URLParam(r, "tag"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundBody(w, "tag not registered to department")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}
