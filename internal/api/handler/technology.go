package handler

import (
	"net/http"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/bcnelson/recon-tracker/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TechnologyHandler handles technology endpoints.
type TechnologyHandler struct {
	svc *service.Service
	log *zap.Logger
}

// NewTechnologyHandler creates a new TechnologyHandler.
func NewTechnologyHandler(svc *service.Service, logger *zap.Logger) *TechnologyHandler {
	return &TechnologyHandler{svc: svc, log: logger}
}

// Create records a technology on a subdomain.
func (h *TechnologyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTechnologyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	tech, err := h.svc.CreateTechnology(r.Context(), chi.URLParam(r, "subdomain_id"), req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, tech)
}

// List lists the technologies of a subdomain.
func (h *TechnologyHandler) List(w http.ResponseWriter, r *http.Request) {
	subdomainID := chi.URLParam(r, "subdomain_id")
	if _, err := h.svc.GetSubdomain(r.Context(), subdomainID); err != nil {
		handleError(w, h.log, err)
		return
	}

	techs, err := h.svc.ListTechnologies(r.Context(), subdomainID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, techs)
}

// Get gets a technology by ID.
func (h *TechnologyHandler) Get(w http.ResponseWriter, r *http.Request) {
	tech, err := h.svc.GetTechnology(r.Context(), chi.URLParam(r, "technology_id"))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, tech)
}

// Update applies a partial update to a technology.
func (h *TechnologyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateTechnologyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}

	tech, err := h.svc.UpdateTechnology(r.Context(), chi.URLParam(r, "technology_id"), req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, tech)
}

// Delete deletes a technology.
func (h *TechnologyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTechnology(r.Context(), chi.URLParam(r, "technology_id")); err != nil {
		handleError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
