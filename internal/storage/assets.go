package storage

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/onemd/internal/apperr"
	"github.com/starford/onemd/internal/models"
)

// SaveImage writes data to <notePath>/images/<SafeFileName(fileName)>,
// replacing any file of the same name, and returns the relative reference
// images/<name> for embedding in the note document.
func (s *Store) SaveImage(notePath, fileName string, data []byte) (string, error) {
	dir := filepath.Join(notePath, models.AssetDir)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", apperr.FromOS("save_image", dir, err)
	}
	name := SafeFileName(fileName)
	target := filepath.Join(dir, name)
	if err := s.writeFile(target, data); err != nil {
		return "", apperr.FromOS("save_image", target, err)
	}
	return path.Join(models.AssetDir, name), nil
}

// AssetPath resolves ref ("images/<file>" or a bare "<file>") to an existing
// regular file inside <notePath>/images. References that carry any other
// directory component are rejected.
func (s *Store) AssetPath(notePath, ref string) (string, error) {
	name := strings.TrimPrefix(strings.ReplaceAll(ref, `\`, "/"), models.AssetDir+"/")
	if name == "" || SafeFileName(name) != name {
		return "", apperr.Invalid("asset_path", ref, "not a plain asset reference")
	}
	target := filepath.Join(notePath, models.AssetDir, name)
	info, err := os.Stat(target)
	if err != nil {
		return "", apperr.FromOS("asset_path", target, err)
	}
	if !info.Mode().IsRegular() {
		return "", apperr.New(apperr.KindInvalidInput, "asset_path", target, errors.New("not a regular file"))
	}
	return target, nil
}
