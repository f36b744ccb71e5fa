package protocols

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalFileSystem is the local end of a transfer. Relative paths are taken
// from RootPath when it is set.
type LocalFileSystem struct {
	RootPath string
}

func (l *LocalFileSystem) resolve(path string) string {
	if l.RootPath == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.RootPath, path)
}

func (l *LocalFileSystem) Open(path string) (io.ReadCloser, error) {
	return os.Open(l.resolve(path))
}

// Create opens path for writing. Without overwrite an existing file is an
// error and is left untouched.
func (l *LocalFileSystem) Create(path string, overwrite bool) (io.WriteCloser, error) {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	return os.OpenFile(l.resolve(path), flag, 0644)
}

func (l *LocalFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(l.resolve(path), 0755)
}

func (l *LocalFileSystem) Exists(path string) bool {
	_, err := os.Stat(l.resolve(path))
	return err == nil
}

// Remove deletes path; a missing file is not an error.
func (l *LocalFileSystem) Remove(path string) error {
	err := os.Remove(l.resolve(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
