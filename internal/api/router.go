package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all control routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/status", h.Status)

	// Sync passes.
	r.Post("/sync/pull", h.Pull)
	r.Post("/sync/push", h.Push)

	// Routing state.
	r.Get("/routing", h.Routing)
	r.Post("/routing/affirm", h.Affirm)

	return r
}

// HealthHandler answers liveness probes. Mounted outside the auth group.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
