package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/starford/onemd/internal/apperr"
	"github.com/starford/onemd/internal/models"
)

// DefaultAppID names the per-user application data directory.
const DefaultAppID = "com.onemd.editor"

// RootResolver computes the root directory holding every notebook.
// The zero value resolves under the platform data directory of DefaultAppID.
type RootResolver struct {
	// AppID is the application data directory name.
	AppID string
	// DataDir, when set, replaces the platform application data directory.
	DataDir string
}

// Resolve returns the absolute root path without touching the filesystem.
// It is recomputed on every call so a relocated data directory is picked up.
func (r RootResolver) Resolve() string {
	base := r.DataDir
	if base == "" {
		base = r.platformBase()
	}
	root := filepath.Join(base, models.RootDirName)
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// Ensure resolves the root and creates it if missing.
func (r RootResolver) Ensure() (string, error) {
	root := r.Resolve()
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return "", apperr.FromOS("ensure_root", root, err)
	}
	return root, nil
}

func (r RootResolver) platformBase() string {
	appID := r.AppID
	if appID == "" {
		appID = DefaultAppID
	}
	if dir, err := AppDataDir(appID); err == nil {
		return dir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// AppDataDir returns the per-user application data directory for appID:
//
//	darwin:  ~/Library/Application Support/<appID>
//	windows: %AppData%\<appID>
//	others:  $XDG_DATA_HOME/<appID> or ~/.local/share/<appID>
func AppDataDir(appID string) (string, error) {
	if appID == "" {
		return "", errors.New("storage: empty app id")
	}
	switch runtime.GOOS {
	case "darwin", "windows":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appID), nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appID), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appID), nil
}
