// Package fileops provides crash-safe file persistence for workspace
// state. Saves go through a temp file and rename, with a .bak copy of
// the previous version kept for recovery.
package fileops

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type FileOps struct {
	testMode bool
}

// Production uses standard directory permissions.
func Production() *FileOps {
	return &FileOps{testMode: false}
}

// Testing uses permissive directory permissions so fixtures under any
// runner uid are writable.
func Testing() *FileOps {
	return &FileOps{testMode: true}
}

func (f *FileOps) TestMode() bool {
	return f.testMode
}

func backupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".bak"
}

// SafeSave writes content to path atomically. The parent directory is
// created if missing and any existing file is copied to a .bak first.
func (f *FileOps) SafeSave(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := f.EnsureDir(dir); err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, backupPath(path)); err != nil {
			return fmt.Errorf("create backup for %s: %w", path, err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".save-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("persist %s: %w", path, err)
	}

	slog.Debug("saved file", "path", path, "bytes", len(content))
	return nil
}

// SafeLoad reads path, falling back to its .bak when the main file is
// unreadable.
func (f *FileOps) SafeLoad(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err == nil {
		return content, nil
	}

	backup := backupPath(path)
	if _, statErr := os.Stat(backup); statErr != nil {
		return nil, fmt.Errorf("load %s (no backup available): %w", path, err)
	}

	slog.Warn("main file unreadable, loading backup", "path", path, "error", err)
	content, err = os.ReadFile(backup)
	if err != nil {
		return nil, fmt.Errorf("load backup %s: %w", backup, err)
	}
	return content, nil
}

// SafeRemove deletes path after preserving it as a .bak. Files are
// copied, directories renamed. Missing paths are not an error.
func (f *FileOps) SafeRemove(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	backup := backupPath(path)
	if info.IsDir() {
		os.RemoveAll(backup)
		if err := os.Rename(path, backup); err != nil {
			return fmt.Errorf("backup directory %s: %w", path, err)
		}
		return nil
	}

	if err := copyFile(path, backup); err != nil {
		return fmt.Errorf("create backup for %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates path (and parents) when missing.
func (f *FileOps) EnsureDir(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(path, f.dirMode()); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	// MkdirAll applies the umask; set the mode explicitly
	if err := os.Chmod(path, f.dirMode()); err != nil {
		return fmt.Errorf("set permissions on %s: %w", path, err)
	}
	return nil
}

func (f *FileOps) dirMode() fs.FileMode {
	if f.testMode {
		return 0o777
	}
	return 0o755
}

func copyFile(src, dst string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, content, 0o644)
}
