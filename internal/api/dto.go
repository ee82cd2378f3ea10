package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/onemd/internal/models"
	"github.com/starford/onemd/internal/noteservice"
)

const (
	maxBodyBytes   = 10 << 20
	maxUploadBytes = 50 << 20
	// maxNameBytes is the common per-component limit of desktop filesystems.
	maxNameBytes = 255
)

// CreateNotebookRequest is the body of POST /notebooks. An empty name is
// accepted and stored as "_".
type CreateNotebookRequest struct {
	Name string `json:"name" example:"Work"`
}

// Validate implements validation.Validatable.
func (r CreateNotebookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, maxNameBytes)),
	)
}

// CreateNoteRequest is the body of POST /notes.
type CreateNoteRequest struct {
	NotebookPath string `json:"notebook_path" validate:"required"`
	Name         string `json:"name" example:"Plan"`
}

// Validate implements validation.Validatable.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NotebookPath, validation.Required),
		validation.Field(&r.Name, validation.Length(0, maxNameBytes)),
	)
}

// SaveNoteRequest is the body of PUT /note and POST /note/draft. Content
// is a pointer so an explicitly empty document is distinguishable from a
// missing field.
type SaveNoteRequest struct {
	Content *string `json:"content" validate:"required"`
}

// Validate implements validation.Validatable.
func (r SaveNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// NotebookListResponse wraps GET /notebooks.
type NotebookListResponse struct {
	Notebooks []models.Notebook `json:"notebooks"`
}

// NoteListResponse wraps GET /notes.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
}

// NoteDetail is the GET /note response (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// SaveNoteResponse is returned by PUT /note.
type SaveNoteResponse struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// ImageUploadResponse is returned after a successful image upload.
type ImageUploadResponse struct {
	Path     string `json:"path" example:"images/shot.png"`
	Markdown string `json:"markdown" example:"![shot.png](images/shot.png)"`
}
