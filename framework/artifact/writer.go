// Package artifact persists compiled container dumps and reads them back.
//
// Writes go to a temp file in the target directory which is synced and then
// renamed over the artifact, so readers only ever observe a complete old
// artifact or a complete new one.
package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/dump"
)

// Extension is appended to the configured filename.
const Extension = ".json"

// Path returns the artifact location for a dump directory and filename.
func Path(dir, filename string) string {
	return filepath.Join(dir, filename+Extension)
}

// Writer writes dump artifacts. The zero value is not usable; call NewWriter.
type Writer struct {
	dirMode     fs.FileMode
	fileMode    fs.FileMode
	accessCheck func(dir string) error
}

// Option configures a Writer.
type Option func(*Writer)

// WithDirMode sets the permissions used when creating the dump directory.
func WithDirMode(m fs.FileMode) Option { return func(w *Writer) { w.dirMode = m } }

// WithFileMode sets the permissions of the written artifact.
func WithFileMode(m fs.FileMode) Option { return func(w *Writer) { w.fileMode = m } }

// WithAccessCheck replaces the writability probe run before each write.
func WithAccessCheck(fn func(dir string) error) Option {
	return func(w *Writer) { w.accessCheck = fn }
}

// NewWriter returns a Writer with 0755 directories and 0644 files.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{dirMode: 0o755, fileMode: 0o644, accessCheck: probeWritable}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write serializes d and stores it at Path(dir, filename). Nothing is
// written when serialization fails.
func (w *Writer) Write(dir, filename string, d *container.Dump) error {
	if err := ensureDir(dir, w.dirMode); err != nil {
		return &CannotCreateDirectoryError{Dir: dir, Err: err}
	}
	if err := w.accessCheck(dir); err != nil {
		return &DirectoryNotWritableError{Dir: dir, Err: err}
	}

	data, err := dump.Marshal(d)
	if err != nil {
		return err
	}
	return writeAtomic(Path(dir, filename), data, w.fileMode)
}

// Remove deletes the artifact. A missing artifact is not an error.
func Remove(dir, filename string) error {
	err := os.Remove(Path(dir, filename))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func ensureDir(dir string, perm fs.FileMode) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &fs.PathError{Op: "mkdir", Path: dir, Err: errors.New("not a directory")}
	}
	return nil
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func writeAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
