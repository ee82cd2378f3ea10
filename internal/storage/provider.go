// Package storage implements the filesystem-backed notebook store:
// <root>/<notebook>/<note>/note.md plus <note>/images/<asset>.
package storage

import "github.com/starford/onemd/internal/models"

// Provider is the interface for notebook, note and asset operations.
// Notebook and note paths are absolute directory paths as returned by
// the list and create calls.
type Provider interface {
	// Root ensures and returns the absolute root directory.
	Root() (string, error)
	// ListNotebooks returns the directories directly under the root, sorted by name.
	ListNotebooks() ([]models.Notebook, error)
	// CreateNotebook creates (or reuses) <root>/<sanitized name>.
	CreateNotebook(name string) (models.Notebook, error)
	// ListNotes returns the directories directly under notebookPath, sorted by name.
	ListNotes(notebookPath string) ([]models.Note, error)
	// CreateNote creates (or reuses) a note directory and its default document.
	CreateNote(notebookPath, name string) (models.Note, error)
	// ReadNote returns the full content of <notePath>/note.md.
	ReadNote(notePath string) (string, error)
	// SaveNote replaces the content of <notePath>/note.md.
	SaveNote(notePath, content string) error
	// SaveImage writes data to <notePath>/images/<file> and returns images/<file>.
	SaveImage(notePath, fileName string, data []byte) (string, error)
	// AssetPath resolves an images/<file> reference to an existing file.
	AssetPath(notePath, ref string) (string, error)
	// EnsureDemoData materializes the sample notebook once.
	EnsureDemoData() error
}

// Verify *Store satisfies Provider at compile time.
var _ Provider = (*Store)(nil)
