package storage

import (
	"os"
	"path/filepath"

	"github.com/starford/onemd/internal/apperr"
	"github.com/starford/onemd/internal/models"
)

func newNotebook(name, path string) models.Notebook {
	return models.Notebook{Name: name, Path: path}
}

// ListNotebooks returns every directory directly under the root.
func (s *Store) ListNotebooks() ([]models.Notebook, error) {
	root, err := s.resolver.Ensure()
	if err != nil {
		return nil, err
	}
	notebooks, err := listDirs(root, newNotebook)
	if err != nil {
		return nil, apperr.FromOS("list_notebooks", root, err)
	}
	return notebooks, nil
}

// CreateNotebook creates <root>/<SanitizeName(name)>. An existing directory
// of that name is reused, so creating the same name twice yields the same
// notebook.
func (s *Store) CreateNotebook(name string) (models.Notebook, error) {
	root, err := s.resolver.Ensure()
	if err != nil {
		return models.Notebook{}, err
	}
	dir := filepath.Join(root, SanitizeName(name))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return models.Notebook{}, apperr.FromOS("create_notebook", dir, err)
	}
	return newNotebook(filepath.Base(dir), dir), nil
}
