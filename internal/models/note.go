// Package models defines the domain types for onemd.
package models

// On-disk layout names.
const (
	// RootDirName is appended to the application data directory.
	RootDirName = "notebooks"
	// NoteFile is the single markdown document inside a note directory.
	NoteFile = "note.md"
	// AssetDir holds a note's images, relative to the note directory.
	AssetDir = "images"
	// DefaultImageName is used when no usable file name can be derived.
	DefaultImageName = "image.png"
)

// Notebook is a top-level directory directly under the root.
type Notebook struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Note is a directory directly under a notebook. Its content lives in
// NoteFile and its assets under AssetDir.
type Note struct {
	Name string `json:"name"`
	Path string `json:"path"`
}
