package storage

import (
	"os"
	"path/filepath"

	"github.com/starford/onemd/internal/apperr"
	"github.com/starford/onemd/internal/models"
)

// Sample data written by EnsureDemoData.
const (
	DemoNotebook = "Sample Notebook"
	DemoNote     = "Welcome"
	DemoImage    = "sample.png"
)

// DemoNoteContent is the sample document. It references the sample image
// through a relative images/ link.
const DemoNoteContent = "# Welcome to OneMD\n" +
	"\n" +
	"- Notebook / note three-pane layout\n" +
	"- WYSIWYG markdown editing\n" +
	"- Images are saved in the note's images/ folder and referenced with relative paths\n" +
	"\n" +
	"```js\n" +
	"console.log('Hello OneMD');\n" +
	"```\n" +
	"\n" +
	"![Sample image](images/sample.png)\n"

// demoPNG is a 1x1 RGBA PNG.
var demoPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
	0x00, 0x00, 0x00, 0x10, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0xfc, 0xff, 0x9f, 0xa1,
	0x1e, 0x00, 0x07, 0x82, 0x02, 0x7f, 0x3f, 0x83, 0x79, 0xcf, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45,
	0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// DemoPNG returns a copy of the sample image bytes.
func DemoPNG() []byte {
	return append([]byte(nil), demoPNG...)
}

// EnsureDemoData creates the sample notebook, note and image. Files that
// already exist are left untouched, so running it on every startup has no
// effect after the first successful run.
func (s *Store) EnsureDemoData() error {
	root, err := s.resolver.Ensure()
	if err != nil {
		return err
	}

	noteDir := filepath.Join(root, DemoNotebook, DemoNote)
	if err := os.MkdirAll(noteDir, dirPerm); err != nil {
		return apperr.FromOS("ensure_demo_data", noteDir, err)
	}
	doc := filepath.Join(noteDir, models.NoteFile)
	if _, err := createIfAbsent(doc, []byte(DemoNoteContent)); err != nil {
		return apperr.FromOS("ensure_demo_data", doc, err)
	}

	imageDir := filepath.Join(noteDir, models.AssetDir)
	if err := os.MkdirAll(imageDir, dirPerm); err != nil {
		return apperr.FromOS("ensure_demo_data", imageDir, err)
	}
	image := filepath.Join(imageDir, DemoImage)
	if _, err := createIfAbsent(image, demoPNG); err != nil {
		return apperr.FromOS("ensure_demo_data", image, err)
	}
	return nil
}
