package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chronos/internal/service"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *service.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Timeline and note detail.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/*", h.GetNote)

	// Link graph.
	r.Get("/neighbors/*", h.Neighbors)

	// Parent suggestions and linking.
	r.Get("/candidates/*", h.Candidates)
	r.Get("/choices/*", h.Choices)
	r.Post("/parents/*", h.AddParents)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
