package storage

import (
	"errors"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/starford/onemd/internal/apperr"
	"github.com/starford/onemd/internal/models"
)

func newNote(name, path string) models.Note {
	return models.Note{Name: name, Path: path}
}

// ListNotes returns every directory directly under notebookPath. The path is
// trusted to be a notebook returned by this store.
func (s *Store) ListNotes(notebookPath string) ([]models.Note, error) {
	notes, err := listDirs(notebookPath, newNote)
	if err != nil {
		return nil, apperr.FromOS("list_notes", notebookPath, err)
	}
	return notes, nil
}

// CreateNote creates <notebookPath>/<SanitizeName(name)> and gives it the
// default document unless note.md already exists.
func (s *Store) CreateNote(notebookPath, name string) (models.Note, error) {
	dir := filepath.Join(notebookPath, SanitizeName(name))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return models.Note{}, apperr.FromOS("create_note", dir, err)
	}
	doc := filepath.Join(dir, models.NoteFile)
	if _, err := createIfAbsent(doc, []byte(s.defaultNote)); err != nil {
		return models.Note{}, apperr.FromOS("create_note", doc, err)
	}
	return newNote(filepath.Base(dir), dir), nil
}

// ReadNote returns the content of <notePath>/note.md. A missing document is
// a KindNotFound error, never an empty string.
func (s *Store) ReadNote(notePath string) (string, error) {
	doc := filepath.Join(notePath, models.NoteFile)
	data, err := os.ReadFile(doc)
	if err != nil {
		return "", apperr.FromOS("read_note", doc, err)
	}
	if !utf8.Valid(data) {
		return "", apperr.New(apperr.KindIO, "read_note", doc, errors.New("document is not valid UTF-8"))
	}
	return string(data), nil
}

// SaveNote replaces <notePath>/note.md with content verbatim, creating the
// file if needed. The note directory itself must already exist.
func (s *Store) SaveNote(notePath, content string) error {
	doc := filepath.Join(notePath, models.NoteFile)
	if err := s.writeFile(doc, []byte(content)); err != nil {
		return apperr.FromOS("save_note", doc, err)
	}
	return nil
}
