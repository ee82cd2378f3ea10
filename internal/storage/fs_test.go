package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/onemd/internal/apperr"
	"github.com/starford/onemd/internal/models"
)

func tempStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	s := NewStore(RootResolver{DataDir: t.TempDir()}, opts...)
	root, err := s.Root()
	require.NoError(t, err)
	return s, root
}

func mustNote(t *testing.T, s *Store, notebook, note string) models.Note {
	t.Helper()
	nb, err := s.CreateNotebook(notebook)
	require.NoError(t, err)
	n, err := s.CreateNote(nb.Path, note)
	require.NoError(t, err)
	return n
}

func TestResolve_DataDirOverride(t *testing.T) {
	dir := t.TempDir()
	r := RootResolver{DataDir: dir}
	assert.Equal(t, filepath.Join(dir, "notebooks"), r.Resolve())

	_, err := os.Stat(r.Resolve())
	assert.True(t, os.IsNotExist(err), "Resolve must not create the root")
}

func TestResolve_RelativeDataDirIsAbsolute(t *testing.T) {
	r := RootResolver{DataDir: "relative-data"}
	assert.True(t, filepath.IsAbs(r.Resolve()))
}

func TestEnsure_Idempotent(t *testing.T) {
	r := RootResolver{DataDir: t.TempDir()}
	first, err := r.Ensure()
	require.NoError(t, err)
	second, err := r.Ensure()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.DirExists(t, first)
}

func TestEnsure_RootIsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notebooks"), []byte("x"), 0o644))

	_, err := RootResolver{DataDir: dir}.Ensure()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrIO)
}

func TestAppDataDir_XDG(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("XDG lookup only applies to unix-like platforms")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)

	dir, err := AppDataDir("com.example.test")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(xdg, "com.example.test"), dir)

	root := RootResolver{AppID: "com.example.test"}.Resolve()
	assert.Equal(t, filepath.Join(xdg, "com.example.test", "notebooks"), root)
}

func TestAppDataDir_EmptyID(t *testing.T) {
	_, err := AppDataDir("")
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Plain":          "Plain",
		"  padded \t\n":  "padded",
		"a/b":            "a_b",
		`a\b`:            "a_b",
		"/":              "_",
		`//\\`:           "____",
		"../../etc":      ".._.._etc",
		"":               "_",
		"   ":            "_",
		".":              "_",
		"..":             "__",
		" .. ":           "__",
		"日记 / 周报":        "日记 _ 周报",
		"CON":            "CON",
		"name.with.dots": "name.with.dots",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeName(in), "SanitizeName(%q)", in)
	}
}

func TestSafeFileName(t *testing.T) {
	cases := map[string]string{
		"photo.png":          "photo.png",
		"../../evil.png":     "evil.png",
		`..\..\evil.png`:     "evil.png",
		"/abs/path/shot.jpg": "shot.jpg",
		"dir/":               "dir",
		"":                   "image.png",
		".":                  "image.png",
		"..":                 "image.png",
		"/":                  "image.png",
		"a/..":               "image.png",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeFileName(in), "SafeFileName(%q)", in)
	}
}

func TestListNotebooks_SortedDirectoriesOnly(t *testing.T) {
	s, root := tempStore(t)
	for _, name := range []string{"B", "a", "C"} {
		_, err := s.CreateNotebook(name)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))

	notebooks, err := s.ListNotebooks()
	require.NoError(t, err)

	var names []string
	for _, nb := range notebooks {
		names = append(names, nb.Name)
		assert.Equal(t, filepath.Join(root, nb.Name), nb.Path)
	}
	assert.Equal(t, []string{"B", "C", "a"}, names)
}

func TestListNotebooks_EmptyRoot(t *testing.T) {
	s := NewStore(RootResolver{DataDir: t.TempDir()})
	notebooks, err := s.ListNotebooks()
	require.NoError(t, err)
	assert.NotNil(t, notebooks)
	assert.Empty(t, notebooks)
}

func TestCreateNotebook_Idempotent(t *testing.T) {
	s, _ := tempStore(t)
	first, err := s.CreateNotebook("Work")
	require.NoError(t, err)
	second, err := s.CreateNotebook("  Work  ")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	notebooks, err := s.ListNotebooks()
	require.NoError(t, err)
	assert.Len(t, notebooks, 1)
}

func TestCreateNotebook_SlashesStayInRoot(t *testing.T) {
	s, root := tempStore(t)
	for _, name := range []string{"a/b/c", `..\..\up`, "../escape", "..", "/"} {
		nb, err := s.CreateNotebook(name)
		require.NoError(t, err, name)
		assert.Equal(t, root, filepath.Dir(nb.Path), "notebook %q escaped root", name)
		assert.NotContains(t, nb.Name, "/")
		assert.NotContains(t, nb.Name, `\`)
	}
	_, err := os.Stat(filepath.Join(filepath.Dir(root), "escape"))
	assert.True(t, os.IsNotExist(err))
}

func TestCreateNotebook_NameTakenByFile(t *testing.T) {
	s, root := tempStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "taken"), []byte("x"), 0o644))
	_, err := s.CreateNotebook("taken")
	assert.Error(t, err)
}

func TestListNotes_EmptyNotebook(t *testing.T) {
	s, _ := tempStore(t)
	nb, err := s.CreateNotebook("Empty")
	require.NoError(t, err)

	notes, err := s.ListNotes(nb.Path)
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestListNotes_MissingNotebook(t *testing.T) {
	s, root := tempStore(t)
	_, err := s.ListNotes(filepath.Join(root, "ghost"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "list_notes")
}

func TestListNotes_Sorted(t *testing.T) {
	s, _ := tempStore(t)
	nb, err := s.CreateNotebook("Journal")
	require.NoError(t, err)
	for _, name := range []string{"b", "A", "a"} {
		_, err := s.CreateNote(nb.Path, name)
		require.NoError(t, err)
	}
	notes, err := s.ListNotes(nb.Path)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "A", notes[0].Name)
	assert.Equal(t, "a", notes[1].Name)
	assert.Equal(t, "b", notes[2].Name)
}

func TestCreateNote_WritesDefaultDocument(t *testing.T) {
	s, _ := tempStore(t)
	note := mustNote(t, s, "Work", "Ideas")

	content, err := s.ReadNote(note.Path)
	require.NoError(t, err)
	assert.Equal(t, DefaultNoteContent, content)
}

func TestCreateNote_CustomDefault(t *testing.T) {
	s, _ := tempStore(t, WithDefaultNote("# Untitled\n"))
	note := mustNote(t, s, "Work", "Ideas")

	content, err := s.ReadNote(note.Path)
	require.NoError(t, err)
	assert.Equal(t, "# Untitled\n", content)
}

func TestCreateNote_KeepsExistingDocument(t *testing.T) {
	s, _ := tempStore(t)
	note := mustNote(t, s, "Work", "Ideas")
	require.NoError(t, s.SaveNote(note.Path, "my edits"))

	again, err := s.CreateNote(filepath.Dir(note.Path), "Ideas")
	require.NoError(t, err)
	assert.Equal(t, note, again)

	content, err := s.ReadNote(note.Path)
	require.NoError(t, err)
	assert.Equal(t, "my edits", content)
}

func TestReadNote_MissingDocument(t *testing.T) {
	s, root := tempStore(t)
	dir := filepath.Join(root, "nb", "bare")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	content, err := s.ReadNote(dir)
	require.Error(t, err)
	assert.Empty(t, content)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "note.md")
}

func TestReadNote_InvalidUTF8(t *testing.T) {
	s, _ := tempStore(t)
	note := mustNote(t, s, "nb", "binary")
	require.NoError(t, os.WriteFile(filepath.Join(note.Path, "note.md"), []byte{0xff, 0xfe, 0xfd}, 0o644))

	_, err := s.ReadNote(note.Path)
	assert.ErrorIs(t, err, apperr.ErrIO)
}

func TestSaveNote_RoundTripAndTruncate(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		s, _ := tempStore(t, WithAtomicWrites(atomic))
		note := mustNote(t, s, "nb", "n")

		require.NoError(t, s.SaveNote(note.Path, "a much longer first version"))
		require.NoError(t, s.SaveNote(note.Path, "short"))
		content, err := s.ReadNote(note.Path)
		require.NoError(t, err)
		assert.Equal(t, "short", content, "atomic=%v", atomic)

		require.NoError(t, s.SaveNote(note.Path, ""))
		content, err = s.ReadNote(note.Path)
		require.NoError(t, err)
		assert.Equal(t, "", content, "atomic=%v", atomic)
	}
}

func TestSaveNote_RecreatesDeletedDocument(t *testing.T) {
	s, _ := tempStore(t)
	note := mustNote(t, s, "nb", "n")
	require.NoError(t, os.Remove(filepath.Join(note.Path, "note.md")))

	require.NoError(t, s.SaveNote(note.Path, "back"))
	content, err := s.ReadNote(note.Path)
	require.NoError(t, err)
	assert.Equal(t, "back", content)
}

func TestSaveNote_MissingDirectory(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		s, root := tempStore(t, WithAtomicWrites(atomic))
		missing := filepath.Join(root, "nb", "ghost")

		err := s.SaveNote(missing, "x")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrNotFound, "atomic=%v", atomic)
		_, statErr := os.Stat(missing)
		assert.True(t, os.IsNotExist(statErr), "SaveNote must not create the note directory")
	}
}

func TestSaveNote_NoLeftoverTempFiles(t *testing.T) {
	s, _ := tempStore(t)
	note := mustNote(t, s, "nb", "n")
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveNote(note.Path, "v"))
	}
	matches, err := filepath.Glob(filepath.Join(note.Path, TempFilePrefix+"*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSaveImage_TraversalStaysInImages(t *testing.T) {
	s, _ := tempStore(t)
	note := mustNote(t, s, "nb", "n")

	rel, err := s.SaveImage(note.Path, "../../evil.png", []byte("evil"))
	require.NoError(t, err)
	assert.Equal(t, "images/evil.png", rel)

	data, err := os.ReadFile(filepath.Join(note.Path, "images", "evil.png"))
	require.NoError(t, err)
	assert.Equal(t, "evil", string(data))

	for _, p := range []string{
		filepath.Join(note.Path, "evil.png"),
		filepath.Join(filepath.Dir(note.Path), "evil.png"),
		filepath.Join(filepath.Dir(filepath.Dir(note.Path)), "evil.png"),
	} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "unexpected file %s", p)
	}
}

func TestSaveImage_FallbackNameAndOverwrite(t *testing.T) {
	s, _ := tempStore(t)
	note := mustNote(t, s, "nb", "n")

	rel, err := s.SaveImage(note.Path, "", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, "images/image.png", rel)

	rel, err = s.SaveImage(note.Path, "..", []byte("two"))
	require.NoError(t, err)
	assert.Equal(t, "images/image.png", rel)

	data, err := os.ReadFile(filepath.Join(note.Path, "images", "image.png"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestSaveImage_EmptyData(t *testing.T) {
	s, _ := tempStore(t, WithAtomicWrites(false))
	note := mustNote(t, s, "nb", "n")

	rel, err := s.SaveImage(note.Path, "blank.png", nil)
	require.NoError(t, err)
	assert.Equal(t, "images/blank.png", rel)
	assert.FileExists(t, filepath.Join(note.Path, "images", "blank.png"))
}

func TestAssetPath(t *testing.T) {
	s, _ := tempStore(t)
	note := mustNote(t, s, "nb", "n")
	_, err := s.SaveImage(note.Path, "pic.png", []byte("png"))
	require.NoError(t, err)

	for _, ref := range []string{"images/pic.png", "pic.png"} {
		p, err := s.AssetPath(note.Path, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, filepath.Join(note.Path, "images", "pic.png"), p)
	}

	_, err = s.AssetPath(note.Path, "images/missing.png")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	for _, ref := range []string{"../note.md", "images/../note.md", "", "images/", `..\note.md`} {
		_, err := s.AssetPath(note.Path, ref)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, ref)
	}
}

func TestEnsureDemoData_Idempotent(t *testing.T) {
	s, root := tempStore(t)
	require.NoError(t, s.EnsureDemoData())

	noteDir := filepath.Join(root, DemoNotebook, DemoNote)
	doc := filepath.Join(noteDir, "note.md")
	img := filepath.Join(noteDir, "images", DemoImage)

	content, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, DemoNoteContent, string(content))
	png, err := os.ReadFile(img)
	require.NoError(t, err)
	assert.Equal(t, DemoPNG(), png)

	require.NoError(t, os.WriteFile(doc, []byte("edited by user"), 0o644))
	require.NoError(t, s.EnsureDemoData())

	content, err = os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, "edited by user", string(content))

	notebooks, err := s.ListNotebooks()
	require.NoError(t, err)
	require.Len(t, notebooks, 1)
	notes, err := s.ListNotes(notebooks[0].Path)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, DemoNote, notes[0].Name)
}

func TestEnsureDemoData_RestoresMissingImage(t *testing.T) {
	s, root := tempStore(t)
	require.NoError(t, s.EnsureDemoData())
	img := filepath.Join(root, DemoNotebook, DemoNote, "images", DemoImage)
	require.NoError(t, os.Remove(img))

	require.NoError(t, s.EnsureDemoData())
	assert.FileExists(t, img)
}

func TestCheckDepth(t *testing.T) {
	root := t.TempDir()
	nb := filepath.Join(root, "nb")
	note := filepath.Join(nb, "note")

	assert.NoError(t, CheckDepth("op", root, nb, 1))
	assert.NoError(t, CheckDepth("op", root, note, 2))
	assert.NoError(t, CheckDepth("op", root, note+string(filepath.Separator), 2))

	bad := []struct {
		path  string
		depth int
	}{
		{"", 1},
		{root, 1},
		{note, 1},
		{nb, 2},
		{filepath.Join(root, ".."), 1},
		{filepath.Join(root, "..", "outside"), 1},
		{filepath.Join(nb, "..", "..", "x", "y"), 2},
	}
	for _, c := range bad {
		err := CheckDepth("op", root, c.path, c.depth)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "path %q depth %d", c.path, c.depth)
	}
}
