package handler

import (
	"net/http"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/bcnelson/recon-tracker/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SubdomainHandler handles subdomain endpoints.
type SubdomainHandler struct {
	svc *service.Service
	log *zap.Logger
}

// NewSubdomainHandler creates a new SubdomainHandler.
func NewSubdomainHandler(svc *service.Service, logger *zap.Logger) *SubdomainHandler {
	return &SubdomainHandler{svc: svc, log: logger}
}

// Create creates a subdomain under a project.
func (h *SubdomainHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSubdomainRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	subdomain, err := h.svc.CreateSubdomain(r.Context(), chi.URLParam(r, "project_id"), req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, subdomain)
}

// List lists the subdomains of a project with their technologies and
// vulnerabilities.
func (h *SubdomainHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	if _, err := h.svc.GetProject(r.Context(), projectID); err != nil {
		handleError(w, h.log, err)
		return
	}

	subdomains, err := h.svc.ListSubdomainsWithChildren(r.Context(), projectID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, subdomains)
}

// Get returns the detail bundle of a subdomain.
func (h *SubdomainHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.SubdomainDetail(r.Context(), chi.URLParam(r, "subdomain_id"))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// Update applies a partial update to a subdomain.
func (h *SubdomainHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSubdomainRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	subdomain, err := h.svc.UpdateSubdomain(r.Context(), chi.URLParam(r, "subdomain_id"), req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, subdomain)
}

// Delete deletes a subdomain with its technologies and vulnerabilities.
func (h *SubdomainHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSubdomain(r.Context(), chi.URLParam(r, "subdomain_id")); err != nil {
		handleError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
