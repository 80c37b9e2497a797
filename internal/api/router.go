package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/munin/internal/graphsvc"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *graphsvc.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.listDocuments)
	r.Get("/documents/*", h.getDocument)

	// Link graph queries.
	r.Get("/backlinks/*", h.backlinks)
	r.Get("/tags", h.tags)
	r.Get("/graph", h.graph)

	// Full-text search.
	r.Get("/search", h.search)

	// Corpus health.
	r.Get("/validate", h.validate)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
