package handler

import (
	"fmt"
	"net/http"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/bcnelson/recon-tracker/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProjectHandler handles project endpoints.
type ProjectHandler struct {
	svc *service.Service
	log *zap.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(svc *service.Service, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{svc: svc, log: logger}
}

// Create creates a new project.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	project, err := h.svc.CreateProject(r.Context(), req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

// List lists all projects, newest first.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, projects)
}

// Get gets a project by ID.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.svc.GetProject(r.Context(), chi.URLParam(r, "project_id"))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// Update applies a partial update to a project.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	project, err := h.svc.UpdateProject(r.Context(), chi.URLParam(r, "project_id"), req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// Delete deletes a project and everything under it.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), chi.URLParam(r, "project_id")); err != nil {
		handleError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats returns the vulnerability statistics of a project.
func (h *ProjectHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.ProjectStats(r.Context(), chi.URLParam(r, "project_id"))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Export returns the export bundle of a project as JSON or, with
// ?format=yaml, as YAML.
func (h *ProjectHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "yaml" {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "format must be json or yaml")
		return
	}

	bundle, err := h.svc.ExportProject(r.Context(), chi.URLParam(r, "project_id"))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	filename := fmt.Sprintf("%s-export.%s", bundle.Project.Domain, formatOrDefault(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	if format == "yaml" {
		if err := respondYAML(w, http.StatusOK, bundle); err != nil {
			h.log.Error("writing yaml export failed", zap.Error(err))
		}
		return
	}
	respondJSON(w, http.StatusOK, bundle)
}

// Import recreates a project from an export bundle.
func (h *ProjectHandler) Import(w http.ResponseWriter, r *http.Request) {
	bundle, err := decodeBundle(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	project, err := h.svc.ImportProject(r.Context(), bundle)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

func formatOrDefault(format string) string {
	if format == "" {
		return "json"
	}
	return format
}
