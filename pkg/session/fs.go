package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// WriteMode selects how WriteFile treats an existing target.
type WriteMode int

const (
	// WriteCreate creates the file exclusively and fails with os.ErrExist if
	// it is already there.
	WriteCreate WriteMode = iota
	// WriteTruncate replaces the content atomically via a temp file and rename.
	WriteTruncate
	// WriteAppend adds to the end of an existing file.
	WriteAppend
)

func (m WriteMode) String() string {
	switch m {
	case WriteCreate:
		return "create"
	case WriteTruncate:
		return "truncate"
	case WriteAppend:
		return "append"
	default:
		return fmt.Sprintf("WriteMode(%d)", int(m))
	}
}

// FileSystem is the file collaborator used by Store.
type FileSystem interface {
	Exists(path string) bool
	IsDirectory(path string) bool
	IsReadable(path string) bool
	IsWritable(path string) bool
	CreateDirectory(path string, mode os.FileMode) error
	ReadFile(path string) ([]byte, error)
	ReadDir(path string) ([]os.DirEntry, error)
	WriteFile(path string, data []byte, mode WriteMode) error
}

// OSFileSystem implements FileSystem on the local disk.
type OSFileSystem struct {
	// FileMode is used for newly created session files.
	FileMode os.FileMode
}

// NewOSFileSystem returns an OSFileSystem creating files with mode 0644.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{FileMode: 0644}
}

func (fs *OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(ExpandHome(path))
	return err == nil
}

func (fs *OSFileSystem) IsDirectory(path string) bool {
	info, err := os.Stat(ExpandHome(path))
	return err == nil && info.IsDir()
}

func (fs *OSFileSystem) IsReadable(path string) bool {
	f, err := os.Open(ExpandHome(path))
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (fs *OSFileSystem) IsWritable(path string) bool {
	path = ExpandHome(path)
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (fs *OSFileSystem) CreateDirectory(path string, mode os.FileMode) error {
	return os.MkdirAll(ExpandHome(path), mode)
}

func (fs *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(ExpandHome(path))
}

func (fs *OSFileSystem) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(ExpandHome(path))
}

func (fs *OSFileSystem) WriteFile(path string, data []byte, mode WriteMode) error {
	path = ExpandHome(path)

	switch mode {
	case WriteCreate:
		return fs.writeExclusive(path, data)
	case WriteTruncate:
		return fs.replace(path, data)
	case WriteAppend:
		return fs.append(path, data)
	default:
		return fmt.Errorf("unknown write mode %s", mode)
	}
}

func (fs *OSFileSystem) writeExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fs.mode())
	if err != nil {
		return err
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("failed to sync session file: %w", err)
	}
	return file.Close()
}

// replace writes data next to path and renames it over the target, so a
// failed write never leaves a half-written session behind.
func (fs *OSFileSystem) replace(path string, data []byte) error {
	perm := fs.mode()
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	suffix, err := gonanoid.New(8)
	if err != nil {
		return fmt.Errorf("failed to generate temp name: %w", err)
	}
	tempPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+suffix+".tmp")

	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync session file: %w", err)
	}
	file.Close()

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// append never truncates. A newline is inserted first when the existing
// content does not end with one, so the fragment starts on its own line.
// The file only needs to be writable; the newline check is skipped when it
// cannot be read.
func (fs *OSFileSystem) append(path string, data []byte) error {
	if lacksTrailingNewline(path) {
		data = append([]byte{'\n'}, data...)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to append to session file: %w", err)
	}
	return file.Sync()
}

func (fs *OSFileSystem) mode() os.FileMode {
	if fs.FileMode == 0 {
		return 0644
	}
	return fs.FileMode
}

func lacksTrailingNewline(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}

	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	return last[0] != '\n'
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
