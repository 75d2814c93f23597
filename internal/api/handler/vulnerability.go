package handler

import (
	"net/http"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/bcnelson/recon-tracker/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// VulnerabilityHandler handles vulnerability endpoints.
type VulnerabilityHandler struct {
	svc *service.Service
	log *zap.Logger
}

// NewVulnerabilityHandler creates a new VulnerabilityHandler.
func NewVulnerabilityHandler(svc *service.Service, logger *zap.Logger) *VulnerabilityHandler {
	return &VulnerabilityHandler{svc: svc, log: logger}
}

// Create records a finding against a subdomain.
func (h *VulnerabilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateVulnerabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	vuln, err := h.svc.CreateVulnerability(r.Context(), chi.URLParam(r, "subdomain_id"), req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, vuln)
}

// List lists the vulnerabilities of a subdomain, oldest first.
func (h *VulnerabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	subdomainID := chi.URLParam(r, "subdomain_id")
	if _, err := h.svc.GetSubdomain(r.Context(), subdomainID); err != nil {
		handleError(w, h.log, err)
		return
	}

	vulns, err := h.svc.ListVulnerabilities(r.Context(), subdomainID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, vulns)
}

// Get gets a vulnerability by ID.
func (h *VulnerabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	vuln, err := h.svc.GetVulnerability(r.Context(), chi.URLParam(r, "vulnerability_id"))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, vuln)
}

// Update applies a partial update to a vulnerability.
func (h *VulnerabilityHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateVulnerabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	vuln, err := h.svc.UpdateVulnerability(r.Context(), chi.URLParam(r, "vulnerability_id"), req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, vuln)
}

// Delete deletes a vulnerability.
func (h *VulnerabilityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteVulnerability(r.Context(), chi.URLParam(r, "vulnerability_id")); err != nil {
		handleError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
