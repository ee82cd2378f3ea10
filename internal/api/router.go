package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/onemd/internal/autosave"
	"github.com/starford/onemd/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(svc *noteservice.Service, drafts *autosave.Debouncer, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, drafts)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/demo", h.EnsureDemoData)

	r.Get("/notebooks", h.ListNotebooks)
	r.Post("/notebooks", h.CreateNotebook)

	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)

	r.Get("/note", h.GetNote)
	r.Put("/note", h.SaveNote)
	r.Post("/note/draft", h.SaveDraft)
	r.Post("/note/flush", h.FlushDrafts)

	r.Post("/images", h.UploadImage)
	r.Get("/asset", h.ServeAsset)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
