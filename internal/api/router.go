package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scribe/internal/dialog"
	"github.com/starford/scribe/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(ws *workspace.Workspace, files dialog.Lister, notify dialog.Notifier, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(ws, files, notify)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Route("/documents/{id}", func(r chi.Router) {
		r.Get("/", h.GetDocument)
		r.Delete("/", h.DeleteDocument)
		r.Get("/outline", h.GetOutline)
		r.Put("/body", h.UpdateBody)
		r.Post("/save", h.SaveDocument)
		r.Post("/rename", h.RenameDocument)
	})
	r.Post("/import", h.Import)
	r.Post("/save", h.SaveActive)

	// Tabs.
	r.Get("/tabs", h.ListTabs)
	r.Post("/tabs/{id}", h.OpenTab)
	r.Put("/tabs/{id}/active", h.SelectTab)
	r.Delete("/tabs/{id}", h.CloseTab)

	r.Get("/state", h.State)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
