package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/upass-project/upass/internal/server/config"
)

// NewRouter assembles the route tree with per-route rate budgets. The
// destructive routes carry the tightest budgets; everything else shares
// the default.
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(logRequests(h.logger))
	r.Use(securityHeaders)

	r.Get("/health", h.Health)

	r.Route("/vaults/{username}", func(r chi.Router) {
		r.With(rateLimit(cfg.RateDefault)).Get("/exists", h.Exists)
		r.With(rateLimit(cfg.RateRetrieve)).Post("/retrieve", h.Retrieve)
		r.With(rateLimit(cfg.RateSave)).Put("/", h.Save)
		r.With(rateLimit(cfg.RateDelete)).Post("/delete", h.Delete)
	})

	return r
}
