package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/starford/onemd/internal/autosave"
	"github.com/starford/onemd/internal/checksum"
	"github.com/starford/onemd/internal/markdown"
	"github.com/starford/onemd/internal/noteservice"
)

// AssetRoute is where the router serves note assets; display-mode
// documents link their images here.
const AssetRoute = "/api/asset"

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	drafts *autosave.Debouncer
}

// NewHandler creates a new Handler. drafts may be nil, in which case draft
// requests are saved immediately.
func NewHandler(svc *noteservice.Service, drafts *autosave.Debouncer) *Handler {
	return &Handler{svc: svc, drafts: drafts}
}

// displayPrefix starts every display-mode image link of notePath.
func displayPrefix(notePath string) string {
	return AssetRoute + "?note=" + url.QueryEscape(notePath) + "&file="
}

// displayLink turns a relative image reference into an asset route URL.
// The reference is query-escaped since asset names may contain + & or %.
func displayLink(notePath string) func(ref string) string {
	prefix := displayPrefix(notePath)
	return func(ref string) string {
		return prefix + url.QueryEscape(ref)
	}
}

// toStored undoes display rewriting. It accepts both the asset route form
// and links that point at the note directory itself.
func toStored(notePath, content string) string {
	display := displayPrefix(notePath)
	dir := strings.ReplaceAll(filepath.ToSlash(notePath), `\`, "/") + "/"
	return markdown.ToRelativeFunc(content, func(src string) (string, bool) {
		if rest, ok := strings.CutPrefix(src, display); ok {
			ref, err := url.QueryUnescape(rest)
			return ref, err == nil
		}
		return strings.CutPrefix(src, dir)
	})
}

func requireQuery(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter '"+key+"' is required"))
		return "", false
	}
	return v, true
}

// notePathQuery reads a note path parameter in clean form, so every
// spelling of one note maps to the same pending draft.
func notePathQuery(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	p, ok := requireQuery(w, r, key)
	if !ok {
		return "", false
	}
	return filepath.Clean(p), true
}

// EnsureDemoData handles POST /api/demo.
//
//	@Summary	Create the sample notebook if it is missing
//	@Tags		notebooks
//	@Success	204	"Sample data present"
//	@Router		/demo [post]
func (h *Handler) EnsureDemoData(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.EnsureDemoData(r.Context()); err != nil {
		writeError(w, "ensure demo data", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotebooks handles GET /api/notebooks.
//
//	@Summary	List notebooks sorted by name
//	@Tags		notebooks
//	@Produce	json
//	@Success	200	{object}	NotebookListResponse
//	@Router		/notebooks [get]
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	nbs, err := h.svc.ListNotebooks(r.Context())
	if err != nil {
		writeError(w, "list notebooks", err)
		return
	}
	writeJSON(w, http.StatusOK, NotebookListResponse{Notebooks: nbs})
}

// CreateNotebook handles POST /api/notebooks.
//
//	@Summary	Create a notebook, or return the existing one
//	@Tags		notebooks
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateNotebookRequest	true	"Notebook name"
//	@Success	201		{object}	models.Notebook
//	@Router		/notebooks [post]
func (h *Handler) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	var req CreateNotebookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	nb, err := h.svc.CreateNotebook(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create notebook", err)
		return
	}
	writeJSON(w, http.StatusCreated, nb)
}

// ListNotes handles GET /api/notes?notebook=.
//
//	@Summary	List the notes of a notebook
//	@Tags		notes
//	@Produce	json
//	@Param		notebook	query		string	true	"Notebook path"
//	@Success	200			{object}	NoteListResponse
//	@Failure	404			{object}	errResponse
//	@Router		/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	nbPath, ok := requireQuery(w, r, "notebook")
	if !ok {
		return
	}
	notes, err := h.svc.ListNotes(r.Context(), nbPath)
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes})
}

// CreateNote handles POST /api/notes.
//
//	@Summary	Create a note, or return the existing one
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateNoteRequest	true	"Notebook path and note name"
//	@Success	201		{object}	models.Note
//	@Failure	400		{object}	errResponse
//	@Router		/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.NotebookPath, req.Name)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /api/note?path=.
//
//	@Summary	Read a note
//	@Description	A pending draft is saved first. With display=1 relative image links point at the asset route.
//	@Tags		notes
//	@Produce	json
//	@Param		path	query		string	true	"Note path"
//	@Param		display	query		bool	false	"Rewrite image links for display"
//	@Success	200		{object}	NoteDetail
//	@Failure	404		{object}	errResponse
//	@Router		/note [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	notePath, ok := notePathQuery(w, r, "path")
	if !ok {
		return
	}
	if h.drafts != nil {
		if err := h.drafts.Flush(r.Context(), notePath); err != nil {
			writeError(w, "flush draft", err)
			return
		}
	}
	note, err := h.svc.GetNote(r.Context(), notePath)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	if r.URL.Query().Get("display") == "1" {
		note.Content = markdown.ToDisplayFunc(note.Content, displayLink(notePath))
	}
	writeJSON(w, http.StatusOK, note)
}

// SaveNote handles PUT /api/note?path=.
//
//	@Summary	Replace a note's document
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		path		query		string			true	"Note path"
//	@Param		If-Match	header		string			false	"ETag from GET /note"
//	@Param		body		body		SaveNoteRequest	true	"New content"
//	@Success	200			{object}	SaveNoteResponse
//	@Failure	404			{object}	errResponse
//	@Failure	409			{object}	errResponse
//	@Router		/note [put]
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	notePath, ok := notePathQuery(w, r, "path")
	if !ok {
		return
	}
	var req SaveNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if h.drafts != nil {
		h.drafts.Cancel(notePath)
	}
	sum, err := h.svc.SaveNote(r.Context(), notePath, toStored(notePath, *req.Content), r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "save note", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(sum))
	writeJSON(w, http.StatusOK, SaveNoteResponse{Path: notePath, Checksum: sum})
}

// SaveDraft handles POST /api/note/draft?path=.
//
//	@Summary	Queue a debounced save
//	@Tags		notes
//	@Accept		json
//	@Param		path	query	string			true	"Note path"
//	@Param		body	body	SaveNoteRequest	true	"Draft content"
//	@Success	202		"Draft queued"
//	@Router		/note/draft [post]
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	notePath, ok := notePathQuery(w, r, "path")
	if !ok {
		return
	}
	var req SaveNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.CheckNotePath(notePath); err != nil {
		writeError(w, "save draft", err)
		return
	}
	content := toStored(notePath, *req.Content)

	if h.drafts == nil {
		if _, err := h.svc.SaveNote(r.Context(), notePath, content, ""); err != nil {
			writeError(w, "save draft", err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err := h.drafts.Schedule(notePath, content); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// FlushDrafts handles POST /api/note/flush[?path=].
//
//	@Summary	Save pending drafts now
//	@Tags		notes
//	@Param		path	query	string	false	"Only this note"
//	@Success	204		"Drafts saved"
//	@Router		/note/flush [post]
func (h *Handler) FlushDrafts(w http.ResponseWriter, r *http.Request) {
	if h.drafts == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var err error
	if notePath := r.URL.Query().Get("path"); notePath != "" {
		err = h.drafts.Flush(r.Context(), filepath.Clean(notePath))
	} else {
		err = h.drafts.FlushAll(r.Context())
	}
	if err != nil {
		writeError(w, "flush drafts", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveDraftFunc adapts the service to autosave.SaveFunc.
func SaveDraftFunc(svc *noteservice.Service) autosave.SaveFunc {
	return func(ctx context.Context, notePath, content string) error {
		_, err := svc.SaveNote(ctx, notePath, content, "")
		if err == nil {
			slog.Debug("draft saved", slog.String("path", notePath))
		}
		return err
	}
}
