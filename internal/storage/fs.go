package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/onemd/internal/apperr"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	// TempFilePrefix marks in-flight atomic writes.
	TempFilePrefix = ".onemd-tmp-"
)

// DefaultNoteContent is written to note.md when a note is created.
const DefaultNoteContent = "# New Note\n\nStart writing."

// Store implements Provider on the local file system. It holds no state
// besides its configuration; the root is resolved again on every call.
type Store struct {
	resolver     RootResolver
	atomicWrites bool
	defaultNote  string
}

// Option configures a Store.
type Option func(*Store)

// WithAtomicWrites toggles temp file + rename writes for note.md and assets.
// When disabled the destination is truncated and written in place.
func WithAtomicWrites(enabled bool) Option {
	return func(s *Store) {
		s.atomicWrites = enabled
	}
}

// WithDefaultNote sets the document written into newly created notes.
func WithDefaultNote(content string) Option {
	return func(s *Store) {
		s.defaultNote = content
	}
}

// NewStore creates a Store rooted wherever resolver points.
func NewStore(resolver RootResolver, opts ...Option) *Store {
	s := &Store{
		resolver:     resolver,
		atomicWrites: true,
		defaultNote:  DefaultNoteContent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root ensures the root directory exists and returns it.
func (s *Store) Root() (string, error) {
	return s.resolver.Ensure()
}

// listDirs reads the immediate entries of parent, keeps directories and
// returns them sorted byte-wise by name.
func listDirs[T any](parent string, mk func(name, path string) T) ([]T, error) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.SortFunc(names, strings.Compare)

	out := make([]T, 0, len(names))
	for _, name := range names {
		out = append(out, mk(name, filepath.Join(parent, name)))
	}
	return out, nil
}

// writeFile replaces the content of name. The parent directory must exist.
func (s *Store) writeFile(name string, data []byte) error {
	if !s.atomicWrites {
		return os.WriteFile(name, data, filePerm)
	}

	dir := filepath.Dir(name)
	tmp, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, name); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	success = true
	return nil
}

// createIfAbsent writes data to name only when name does not exist yet.
// O_EXCL keeps a concurrent creator from clobbering an existing file. A
// failed write removes the partial file so a later call can retry.
func createIfAbsent(name string, data []byte) (bool, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return false, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return false, err
	}
	return true, nil
}

// CheckDepth verifies that p lies exactly depth directory levels below root
// (1 for a notebook, 2 for a note). It does not touch the filesystem.
func CheckDepth(op, root, p string, depth int) error {
	if p == "" {
		return apperr.Invalid(op, p, "path is required")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return apperr.Invalid(op, p, "resolve path: %v", err)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return apperr.Invalid(op, p, "path is outside the notebook root")
	}
	if n := len(strings.Split(rel, string(filepath.Separator))); n != depth {
		return apperr.Invalid(op, p, "path is %d levels below the root, want %d", n, depth)
	}
	return nil
}
