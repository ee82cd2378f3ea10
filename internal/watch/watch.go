// Package watch reports changes under the notebook root as typed events.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/starford/onemd/internal/models"
	"github.com/starford/onemd/internal/storage"
)

// Kind names what changed.
type Kind string

const (
	NotebookCreated Kind = "notebook.created"
	NoteCreated     Kind = "note.created"
	NoteUpdated     Kind = "note.updated"
	AssetSaved      Kind = "asset.saved"
	EntryRemoved    Kind = "entry.removed"
)

// Structural reports whether the event changes the notebook/note tree
// rather than the content of an existing note.
func (k Kind) Structural() bool {
	switch k {
	case NotebookCreated, NoteCreated, EntryRemoved:
		return true
	}
	return false
}

// Event is a classified filesystem change. Rel is slash-separated and
// relative to the root.
type Event struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
	Rel  string `json:"rel"`
}

// Callback receives every classified event.
type Callback func(Event)

// DefaultIgnore skips in-flight atomic writes and Finder metadata.
var DefaultIgnore = []string{
	"**/" + storage.TempFilePrefix + "*",
	"**/.DS_Store",
}

// Watcher watches a notebook root recursively.
type Watcher struct {
	root   string
	ignore []string
	logger *slog.Logger
	fw     *fsnotify.Watcher
}

// Watch is New followed by Run.
func Watch(ctx context.Context, root string, ignore []string, logger *slog.Logger, cb Callback) error {
	w, err := New(root, ignore, logger)
	if err != nil {
		return err
	}
	return w.Run(ctx, cb)
}

// New validates the ignore globs and registers root and every directory
// below it. Events are only delivered once Run is called.
func New(root string, ignore []string, logger *slog.Logger) (*Watcher, error) {
	for _, p := range ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", p)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{root: root, ignore: ignore, logger: logger, fw: fw}
	if err := w.addDirsRecursive(root); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", root, err)
	}
	return w, nil
}

// Close releases the watcher. Run closes it too.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// Run delivers events to cb until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, cb Callback) error {
	defer w.fw.Close()
	w.logger.Info("watcher: started", slog.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, cb)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, cb Callback) {
	rel, ok := w.rel(ev.Name)
	if !ok {
		return
	}

	isDir := false
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			isDir = true
		}
	}

	w.emit(ev.Name, rel, ev.Op, isDir, cb)

	if !isDir {
		return
	}
	if err := w.addDirsRecursive(ev.Name); err != nil {
		w.logger.Warn("watcher: add new dir failed",
			slog.String("path", ev.Name),
			slog.String("error", err.Error()))
		return
	}
	// Entries created before the directory was registered produce no
	// events of their own.
	_ = filepath.WalkDir(ev.Name, func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == ev.Name {
			return nil
		}
		childRel, ok := w.rel(p)
		if !ok {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		w.emit(p, childRel, fsnotify.Create, d.IsDir(), cb)
		return nil
	})
}

func (w *Watcher) emit(abs, rel string, op fsnotify.Op, isDir bool, cb Callback) {
	kind, ok := Classify(rel, op, isDir)
	if !ok {
		return
	}
	w.logger.Debug("watcher: change", slog.String("kind", string(kind)), slog.String("path", rel))
	if cb != nil {
		cb(Event{Kind: kind, Path: abs, Rel: rel})
	}
}

// rel returns the slash-separated path of abs below the root, or false for
// the root itself, paths outside it and ignored paths.
func (w *Watcher) rel(abs string) (string, bool) {
	r, err := filepath.Rel(w.root, abs)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	r = filepath.ToSlash(r)
	if w.ignored(r) {
		return "", false
	}
	return r, true
}

func (w *Watcher) ignored(rel string) bool {
	for _, p := range w.ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Classify maps a change at rel to an event kind using the fixed layout
// <notebook>/<note>/note.md and <notebook>/<note>/images/<file>.
func Classify(rel string, op fsnotify.Op, isDir bool) (Kind, bool) {
	parts := strings.Split(rel, "/")
	switch {
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return EntryRemoved, true
	case op&fsnotify.Create != 0 && isDir:
		switch len(parts) {
		case 1:
			return NotebookCreated, true
		case 2:
			return NoteCreated, true
		}
	case op&(fsnotify.Create|fsnotify.Write) != 0 && !isDir:
		switch {
		case len(parts) == 3 && parts[2] == models.NoteFile:
			return NoteUpdated, true
		case len(parts) == 4 && parts[2] == models.AssetDir:
			return AssetSaved, true
		}
	}
	return "", false
}

func (w *Watcher) addDirsRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			if _, ok := w.rel(p); !ok {
				return filepath.SkipDir
			}
		}
		return w.fw.Add(p)
	})
}
