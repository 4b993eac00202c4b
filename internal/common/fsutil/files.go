// fsutil/files.go
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
)

// DirExists checks if a directory exists
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// CreateDirIfNotExists creates a directory with standard permissions if it doesn't exist
func CreateDirIfNotExists(path string) error {
	if path == "" || DirExists(path) {
		return nil
	}
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists and is not a directory
func FileExists(path string) bool {
	mu := GetPathMutex(path)
	mu.Lock()
	defer mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ReadFile reads an entire file into memory
func ReadFile(path string) ([]byte, error) {
	mu := GetPathMutex(path)
	mu.Lock()
	defer mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s", errors.ErrFileReadError, err.Error())
	}
	return data, nil
}

// WriteFileAtomic writes data to a temporary sibling and renames it into
// place, so readers never observe a partially written file
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	mu := GetPathMutex(path)
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Dir(path)
	if err := CreateDirIfNotExists(dir); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrPathNotAccessible, dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrFileWriteError, err.Error())
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s", errors.ErrFileWriteError, err.Error())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrFileWriteError, err.Error())
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrFileWriteError, err.Error())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrFileWriteError, err.Error())
	}
	return nil
}

// DeleteFile deletes a file. A file that is already gone is not an error.
func DeleteFile(path string) error {
	mu := GetPathMutex(path)
	mu.Lock()
	defer mu.Unlock()

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrFileDeleteError, err.Error())
	}
	return nil
}

// ListFilesByExt lists the regular files directly inside dir whose
// extension is one of exts (case-insensitive, with the dot), sorted by name
func ListFilesByExt(dir string, exts ...string) ([]string, error) {
	if !DirExists(dir) {
		return nil, fmt.Errorf("%w: %s", errors.ErrDirNotFound, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrPathNotAccessible, err.Error())
	}

	want := make(map[string]bool, len(exts))
	for _, ext := range exts {
		want[strings.ToLower(ext)] = true
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if want[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ExpandTilde expands the tilde in paths to the user's home directory
func ExpandTilde(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// GetFileNameWithoutExt returns the file name without its extension
func GetFileNameWithoutExt(path string) string {
	baseName := filepath.Base(path)
	return strings.TrimSuffix(baseName, filepath.Ext(baseName))
}
