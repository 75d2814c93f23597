package api

import (
	"net/http"

	"github.com/bcnelson/recon-tracker/internal/api/handler"
	"github.com/bcnelson/recon-tracker/internal/api/middleware"
	"github.com/bcnelson/recon-tracker/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(svc *service.Service, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	log := logger.Named("api")
	projectHandler := handler.NewProjectHandler(svc, log)
	subdomainHandler := handler.NewSubdomainHandler(svc, log)
	techHandler := handler.NewTechnologyHandler(svc, log)
	vulnHandler := handler.NewVulnerabilityHandler(svc, log)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)

		// Projects
		r.Post("/projects", projectHandler.Create)
		r.Get("/projects", projectHandler.List)
		r.Post("/projects/import", projectHandler.Import)

		r.Route("/projects/{project_id}", func(r chi.Router) {
			r.Get("/", projectHandler.Get)
			r.Put("/", projectHandler.Update)
			r.Delete("/", projectHandler.Delete)

			r.Get("/stats", projectHandler.Stats)
			r.Get("/export", projectHandler.Export)

			r.Post("/subdomains", subdomainHandler.Create)
			r.Get("/subdomains", subdomainHandler.List)
		})

		// Subdomains and their children
		r.Route("/subdomains/{subdomain_id}", func(r chi.Router) {
			r.Get("/", subdomainHandler.Get)
			r.Put("/", subdomainHandler.Update)
			r.Delete("/", subdomainHandler.Delete)

			r.Post("/technologies", techHandler.Create)
			r.Get("/technologies", techHandler.List)

			r.Post("/vulnerabilities", vulnHandler.Create)
			r.Get("/vulnerabilities", vulnHandler.List)
		})

		// Technologies
		r.Get("/technologies/{technology_id}", techHandler.Get)
		r.Put("/technologies/{technology_id}", techHandler.Update)
		r.Delete("/technologies/{technology_id}", techHandler.Delete)

		// Vulnerabilities
		r.Get("/vulnerabilities/{vulnerability_id}", vulnHandler.Get)
		r.Put("/vulnerabilities/{vulnerability_id}", vulnHandler.Update)
		r.Delete("/vulnerabilities/{vulnerability_id}", vulnHandler.Delete)
	})

	return r
}
