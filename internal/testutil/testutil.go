// Package testutil provides shared test helpers for setting up notebook stores.
package testutil

import (
	"testing"

	"github.com/starford/onemd/internal/models"
	"github.com/starford/onemd/internal/storage"
)

// TestStore creates a store rooted in a temporary data directory and returns
// it with its ensured root.
func TestStore(t *testing.T, opts ...storage.Option) (*storage.Store, string) {
	t.Helper()
	store := storage.NewStore(storage.RootResolver{DataDir: t.TempDir()}, opts...)
	root, err := store.Root()
	if err != nil {
		t.Fatal(err)
	}
	return store, root
}

// TestNote creates a notebook and a note inside it.
func TestNote(t *testing.T, store storage.Provider, notebook, note string) (models.Notebook, models.Note) {
	t.Helper()
	nb, err := store.CreateNotebook(notebook)
	if err != nil {
		t.Fatal(err)
	}
	n, err := store.CreateNote(nb.Path, note)
	if err != nil {
		t.Fatal(err)
	}
	return nb, n
}
