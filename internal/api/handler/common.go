package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/bcnelson/recon-tracker/internal/validation"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// maxBodyBytes caps request bodies. Import bundles are the largest payload.
const maxBodyBytes = 16 << 20

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondYAML writes a YAML response.
func respondYAML(w http.ResponseWriter, status int, data any) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(status)
	_, err = w.Write(out)
	return err
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, &domain.StandardErrorResponse{
		Error: domain.StandardError{
			Code:    code,
			Message: message,
		},
	})
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"errors": errs,
	})
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		inconsistent *domain.InconsistentStateError
		invalid      validation.ValidationErrors
	)
	switch {
	// Checked first: it wraps whatever store error interrupted the cascade.
	case errors.As(err, &inconsistent):
		log.Error("request left the hierarchy partially deleted", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, &domain.StandardErrorResponse{
			Error: domain.StandardError{
				Code:    domain.ErrCodeInconsistentState,
				Message: "deletion stopped part-way; some records under this " + inconsistent.Kind.String() + " were removed and it must be deleted again",
				Details: map[string]any{
					"kind":   inconsistent.Kind.String(),
					"rootId": inconsistent.RootID,
					"step":   inconsistent.Step,
				},
			},
		})
	case errors.As(err, &invalid):
		respondValidationErrors(w, invalid)
	case errors.Is(err, domain.ErrDuplicateKey):
		respondError(w, http.StatusConflict, domain.ErrCodeDuplicateKey, err.Error())
	case errors.Is(err, domain.ErrDanglingParent), errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, domain.ErrCodeResourceNotFound, "not found")
	default:
		log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error")
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// decodeBundle reads an export bundle in JSON or, when the request says so,
// YAML.
func decodeBundle(w http.ResponseWriter, r *http.Request) (*domain.ExportBundle, error) {
	var bundle domain.ExportBundle
	if !isYAML(r.Header.Get("Content-Type")) {
		if err := decodeJSON(w, r, &bundle); err != nil {
			return nil, err
		}
		return &bundle, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	if err := yaml.Unmarshal(body, &bundle); err != nil {
		return nil, domain.ErrInvalidInput
	}
	return &bundle, nil
}

func isYAML(contentType string) bool {
	switch contentType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return true
	default:
		return false
	}
}
