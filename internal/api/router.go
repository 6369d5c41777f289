package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notas/internal/backend"
)

// NewRouter creates a chi router with the /notas routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is notified after every successful mutation.
// logger receives handler failures; nil means slog.Default.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(notes backend.Backend, events Publisher, logger *slog.Logger, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(notes, events, logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notas", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Get("/search", h.SearchNotes)
		r.Get("/{id}", h.GetNote)
		r.Put("/{id}", h.UpdateNote)
		r.Delete("/{id}", h.DeleteNote)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
