package noteservice

import "path/filepath"

func baseName(p string) string {
	return filepath.Base(filepath.Clean(p))
}
