package api

import (
	"io"
	"net/http"

	"github.com/starford/onemd/internal/markdown"
	"github.com/starford/onemd/internal/storage"
)

// UploadImage handles POST /api/images?note= (multipart/form-data, field "file").
//
//	@Summary	Store an image in a note's images folder
//	@Tags		assets
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		note	query		string	true	"Note path"
//	@Param		file	formData	file	true	"Image"
//	@Success	201		{object}	ImageUploadResponse
//	@Failure	400		{object}	errResponse
//	@Router		/images [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	notePath, ok := requireQuery(w, r, "note")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	rel, err := h.svc.SaveImage(r.Context(), notePath, header.Filename, data)
	if err != nil {
		writeError(w, "save image", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImageUploadResponse{
		Path:     rel,
		Markdown: markdown.ImageLink(storage.SafeFileName(header.Filename), rel),
	})
}

// ServeAsset handles GET /api/asset?note=&file=.
//
//	@Summary	Fetch an asset of a note
//	@Tags		assets
//	@Param		note	query	string	true	"Note path"
//	@Param		file	query	string	true	"Asset reference, e.g. images/a.png"
//	@Success	200		"Asset bytes"
//	@Failure	404		{object}	errResponse
//	@Router		/asset [get]
func (h *Handler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	notePath, ok := requireQuery(w, r, "note")
	if !ok {
		return
	}
	ref, ok := requireQuery(w, r, "file")
	if !ok {
		return
	}
	abs, err := h.svc.AssetPath(r.Context(), notePath, ref)
	if err != nil {
		writeError(w, "serve asset", err)
		return
	}
	http.ServeFile(w, r, abs)
}
