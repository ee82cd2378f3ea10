package storage

import (
	"path"
	"strings"

	"github.com/starford/onemd/internal/models"
)

var separatorReplacer = strings.NewReplacer("/", "_", `\`, "_")

// SanitizeName turns a user-entered title into a single directory segment:
// surrounding whitespace is trimmed and both slash kinds become underscores.
// Names that would resolve to the parent itself ("", ".", "..") degrade to
// underscores instead of failing.
func SanitizeName(name string) string {
	safe := separatorReplacer.Replace(strings.TrimSpace(name))
	switch safe {
	case "", ".":
		return "_"
	case "..":
		return "__"
	}
	return safe
}

// SafeFileName keeps only the final path component of name, treating both
// slash kinds as separators. It falls back to models.DefaultImageName when
// no usable component remains.
func SafeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	switch base {
	case "", ".", "..", "/":
		return models.DefaultImageName
	}
	return base
}
