// Package noteservice coordinates the notebook store with path confinement,
// document inspection and optimistic save checks for the local transports.
package noteservice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/onemd/internal/apperr"
	"github.com/starford/onemd/internal/checksum"
	"github.com/starford/onemd/internal/markdown"
	"github.com/starford/onemd/internal/models"
	"github.com/starford/onemd/internal/storage"
)

const (
	notebookDepth = 1
	noteDepth     = 2
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Checksum string   `json:"checksum"`
	Images   []string `json:"images"`
}

// Service exposes the notebook operations to transports.
type Service struct {
	store   storage.Provider
	confine bool
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfinement controls whether caller-supplied notebook and note paths
// must lie at the right depth inside the root. Enabled by default.
func WithConfinement(enabled bool) Option {
	return func(s *Service) {
		s.confine = enabled
	}
}

// WithLogger sets the logger used for per-operation debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new note service.
func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{store: store, confine: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the ensured root directory.
func (s *Service) Root(_ context.Context) (string, error) {
	return s.store.Root()
}

// EnsureDemoData seeds the sample notebook if needed.
func (s *Service) EnsureDemoData(_ context.Context) error {
	s.logger.Debug("ensure_demo_data")
	return s.store.EnsureDemoData()
}

// ListNotebooks returns all notebooks sorted by name.
func (s *Service) ListNotebooks(_ context.Context) ([]models.Notebook, error) {
	s.logger.Debug("list_notebooks")
	return s.store.ListNotebooks()
}

// CreateNotebook creates or reuses a notebook.
func (s *Service) CreateNotebook(_ context.Context, name string) (models.Notebook, error) {
	s.logger.Debug("create_notebook", slog.String("name", name))
	return s.store.CreateNotebook(name)
}

// ListNotes returns the notes of a notebook sorted by name.
func (s *Service) ListNotes(_ context.Context, notebookPath string) ([]models.Note, error) {
	s.logger.Debug("list_notes", slog.String("notebook", notebookPath))
	if err := s.check("list_notes", notebookPath, notebookDepth); err != nil {
		return nil, err
	}
	return s.store.ListNotes(notebookPath)
}

// CreateNote creates or reuses a note inside a notebook.
func (s *Service) CreateNote(_ context.Context, notebookPath, name string) (models.Note, error) {
	s.logger.Debug("create_note", slog.String("notebook", notebookPath), slog.String("name", name))
	if err := s.check("create_note", notebookPath, notebookDepth); err != nil {
		return models.Note{}, err
	}
	return s.store.CreateNote(notebookPath, name)
}

// ReadNote returns the raw document of a note.
func (s *Service) ReadNote(_ context.Context, notePath string) (string, error) {
	s.logger.Debug("read_note", slog.String("note", notePath))
	if err := s.check("read_note", notePath, noteDepth); err != nil {
		return "", err
	}
	return s.store.ReadNote(notePath)
}

// GetNote reads a note and describes it.
func (s *Service) GetNote(ctx context.Context, notePath string) (*NoteDetail, error) {
	content, err := s.ReadNote(ctx, notePath)
	if err != nil {
		return nil, err
	}
	res := markdown.Parse([]byte(content))
	return &NoteDetail{
		Name:     baseName(notePath),
		Path:     notePath,
		Title:    res.Title,
		Content:  content,
		Checksum: checksum.Sum([]byte(content)),
		Images:   nonNilSlice(res.Images),
	}, nil
}

// SaveNote replaces a note's document and returns the new checksum. When
// ifMatch is non-empty the current document must still match it, otherwise
// the save is refused with a conflict.
func (s *Service) SaveNote(_ context.Context, notePath, content, ifMatch string) (string, error) {
	s.logger.Debug("save_note", slog.String("note", notePath), slog.Int("bytes", len(content)))
	if err := s.check("save_note", notePath, noteDepth); err != nil {
		return "", err
	}
	if ifMatch != "" {
		current, err := s.store.ReadNote(notePath)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return "", err
		}
		if err != nil || !checksum.Matches(ifMatch, []byte(current)) {
			return "", apperr.New(apperr.KindConflict, "save_note", notePath, errors.New("document changed since it was read"))
		}
	}
	if err := s.store.SaveNote(notePath, content); err != nil {
		return "", err
	}
	return checksum.Sum([]byte(content)), nil
}

// SaveImage stores an asset for a note and returns its relative reference.
func (s *Service) SaveImage(_ context.Context, notePath, fileName string, data []byte) (string, error) {
	s.logger.Debug("save_image", slog.String("note", notePath), slog.String("file", fileName), slog.Int("bytes", len(data)))
	if err := s.check("save_image", notePath, noteDepth); err != nil {
		return "", err
	}
	return s.store.SaveImage(notePath, fileName, data)
}

// AssetPath resolves an asset reference of a note to a file path.
func (s *Service) AssetPath(_ context.Context, notePath, ref string) (string, error) {
	if err := s.check("asset_path", notePath, noteDepth); err != nil {
		return "", err
	}
	return s.store.AssetPath(notePath, ref)
}

// CheckNotePath applies the note path confinement rule without touching
// the note. Transports that defer the actual save use it to fail early.
func (s *Service) CheckNotePath(notePath string) error {
	return s.check("check_note_path", notePath, noteDepth)
}

func (s *Service) check(op, p string, depth int) error {
	if !s.confine {
		return nil
	}
	root, err := s.store.Root()
	if err != nil {
		return err
	}
	return storage.CheckDepth(op, root, p, depth)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
