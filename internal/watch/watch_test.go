package watch

import (
	"context"
	"os"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/onemd/internal/storage"
	"github.com/starford/onemd/internal/testutil"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) add(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) has(kind Kind, rel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range c.events {
		if ev.Kind == kind && ev.Rel == rel {
			return true
		}
	}
	return false
}

func (c *collector) any(pred func(Event) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range c.events {
		if pred(ev) {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, root string) *collector {
	t.Helper()
	w, err := New(root, DefaultIgnore, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c := &collector{}
	go func() {
		defer close(done)
		_ = w.Run(ctx, c.add)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func TestClassify(t *testing.T) {
	tests := []struct {
		rel   string
		op    fsnotify.Op
		isDir bool
		want  Kind
		ok    bool
	}{
		{"Work", fsnotify.Create, true, NotebookCreated, true},
		{"Work/Plan", fsnotify.Create, true, NoteCreated, true},
		{"Work/Plan/images", fsnotify.Create, true, "", false},
		{"Work/Plan/note.md", fsnotify.Create, false, NoteUpdated, true},
		{"Work/Plan/note.md", fsnotify.Write, false, NoteUpdated, true},
		{"Work/Plan/other.md", fsnotify.Write, false, "", false},
		{"Work/Plan/images/a.png", fsnotify.Create, false, AssetSaved, true},
		{"Work/Plan/files/a.png", fsnotify.Create, false, "", false},
		{"Work/Plan", fsnotify.Remove, false, EntryRemoved, true},
		{"Work/Plan/note.md", fsnotify.Rename, false, EntryRemoved, true},
		{"Work/Plan/note.md", fsnotify.Chmod, false, "", false},
		{"loose.txt", fsnotify.Create, false, "", false},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.rel, tt.op, tt.isDir)
		assert.Equal(t, tt.ok, ok, "Classify(%q, %v)", tt.rel, tt.op)
		assert.Equal(t, tt.want, got, "Classify(%q, %v)", tt.rel, tt.op)
	}
}

func TestKindStructural(t *testing.T) {
	assert.True(t, NotebookCreated.Structural())
	assert.True(t, NoteCreated.Structural())
	assert.True(t, EntryRemoved.Structural())
	assert.False(t, NoteUpdated.Structural())
	assert.False(t, AssetSaved.Structural())
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(t.TempDir(), []string{"[unclosed"}, nil)
	require.Error(t, err)
}

func TestWatch_StoreOperations(t *testing.T) {
	store, root := testutil.TestStore(t)
	c := startWatcher(t, root)

	nb, err := store.CreateNotebook("Work")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.has(NotebookCreated, "Work") }, 2*time.Second, 10*time.Millisecond)

	note, err := store.CreateNote(nb.Path, "Plan")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.has(NoteCreated, "Work/Plan") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, store.SaveNote(note.Path, "# Plan\n"))
	require.Eventually(t, func() bool { return c.has(NoteUpdated, "Work/Plan/note.md") }, 2*time.Second, 10*time.Millisecond)

	_, err = store.SaveImage(note.Path, "shot.png", []byte("png"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.has(AssetSaved, "Work/Plan/images/shot.png") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.RemoveAll(note.Path))
	require.Eventually(t, func() bool { return c.has(EntryRemoved, "Work/Plan") }, 2*time.Second, 10*time.Millisecond)

	assert.False(t, c.any(func(ev Event) bool {
		return strings.HasPrefix(path.Base(ev.Rel), storage.TempFilePrefix)
	}), "temp files must be ignored")
}

func TestWatch_DemoTreeCreatedAtOnce(t *testing.T) {
	store, root := testutil.TestStore(t)
	c := startWatcher(t, root)

	require.NoError(t, store.EnsureDemoData())

	require.Eventually(t, func() bool {
		return c.has(NotebookCreated, storage.DemoNotebook) &&
			c.has(NoteCreated, storage.DemoNotebook+"/"+storage.DemoNote)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, root, nil, nil, nil) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
