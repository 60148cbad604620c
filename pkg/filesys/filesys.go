// Package filesys wraps the small set of directory/file operations the
// storage layer actually needs on top of raw os calls: creating a segment
// directory idempotently, creating (or truncating) a file without the
// caller re-deriving os.Stat/os.IsExist semantics, reading a whole file,
// and globbing a directory for segment files.
package filesys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrIsNotDir = errors.New("path isn't a directory")

// CreateDir creates a directory at the specified path with the given permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns an error.
//
// It also returns an error if the existing path is a file (not a directory).
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	// Get file information for the given path.
	stat, err := os.Stat(dirPath)
	// If 'force' is false and the path exists
	// return the error (indicating the directory already exists).
	if !force && !os.IsNotExist(err) {
		if err == nil {
			return fmt.Errorf("directory %s already exists", dirPath)
		}
		return err
	}

	// If the path exists and it's not a directory, return an error.
	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}

	// Create all necessary parent directories if they don't exist, with the specified permissions.
	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}

	// Change the permissions of the newly created directory to 0755 (rwxr-xr-x).
	return os.Chmod(dirPath, 0755)
}

// ReadDir reads the directory specified by `dirName` and returns a list of matching file paths.
// It uses `filepath.Glob` which means `dirName` can contain glob patterns (e.g., "mydir/*.txt").
func ReadDir(dirName string) ([]string, error) {
	files, err := filepath.Glob(dirName)
	return files, err
}

// CreateFile creates a new file at the specified `filePath`.
//
// If the file already exists:
//   - If 'force' is true, it overwrites the existing file.
//   - If 'force' is false, it returns an error.
func CreateFile(filePath string, force bool) (*os.File, error) {
	// Check if the file exists.
	_, err := os.Stat(filePath)
	// If 'force' is false and the file exists, return an error.
	if !force && err == nil {
		return nil, fmt.Errorf("file %s already exists", filePath)
	}
	// Create the file. If it exists and 'force' is true, it will be truncated.
	return os.Create(filePath)
}

// ReadFile reads the entire content of the file at `filePath` into a byte slice.
// It returns the file content and any error encountered.
func ReadFile(filePath string) ([]byte, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return contents, err
}
