// Package sink writes extracted files below a destination directory.
//
// All paths are resolved through an os.Root, so a stored name such as
// "../x" cannot write outside the destination.
package sink

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Committer receives a file's content. Commit makes the file visible at its
// final path; Discard removes whatever was written.
type Committer interface {
	io.Writer
	Commit() error
	Discard() error
}

// Sink writes files into a destination directory.
//
// By default, files are written to a temporary file in the same directory
// and renamed to the final path on Commit. This ensures that partially
// written files are never visible at the final path.
type Sink struct {
	dir         string
	root        *os.Root
	directWrite bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithDirectWrites disables temp files and writes directly to the final path.
func WithDirectWrites(enabled bool) Option {
	return func(s *Sink) {
		s.directWrite = enabled
	}
}

// Open returns a Sink rooted at dir, which must already exist.
func Open(dir string, opts ...Option) (*Sink, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open destination root %s: %w", dir, err)
	}
	s := &Sink{dir: dir, root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the destination root.
func (s *Sink) Close() error {
	return s.root.Close()
}

// Dir returns the destination directory.
func (s *Sink) Dir() string {
	return s.dir
}

// Writer returns a Committer for the file name, relative to the destination
// and using forward slashes. A non-zero modTime is applied as both access
// and modification time on Commit. An existing file with the same name is
// replaced.
func (s *Sink) Writer(name string, modTime time.Time) (Committer, error) {
	rel := filepath.FromSlash(name)
	if dir := filepath.Dir(rel); dir != "." {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if s.directWrite {
		file, err := s.root.OpenFile(rel, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("create file %s: %w", name, err)
		}
		return &directCommitter{root: s.root, rel: rel, file: file, modTime: modTime}, nil
	}

	tempFile, tempRel, err := createTempFile(s.root, filepath.Dir(rel), ".afs-")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %s: %w", name, err)
	}
	return &fileCommitter{
		root:     s.root,
		rel:      rel,
		tempFile: tempFile,
		tempRel:  tempRel,
		modTime:  modTime,
	}, nil
}

// fileCommitter writes to a temp file and renames on Commit.
type fileCommitter struct {
	root     *os.Root
	rel      string
	tempFile *os.File
	tempRel  string
	modTime  time.Time
}

// Write implements io.Writer.
func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.tempFile.Write(p)
}

// Commit closes the temp file, applies times, and renames to the final path.
func (c *fileCommitter) Commit() error {
	if err := c.tempFile.Close(); err != nil {
		_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}

	if !c.modTime.IsZero() {
		if err := c.root.Chtimes(c.tempRel, c.modTime, c.modTime); err != nil {
			_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
			return fmt.Errorf("chtimes: %w", err)
		}
	}

	if err := replaceable(c.root, c.rel); err != nil {
		_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return err
	}
	if err := c.root.Rename(c.tempRel, c.rel); err != nil {
		_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", c.rel, err)
	}
	return nil
}

// Discard closes and removes the temp file.
func (c *fileCommitter) Discard() error {
	_ = c.tempFile.Close() //nolint:errcheck // we're cleaning up
	return c.root.Remove(c.tempRel)
}

// directCommitter writes directly to the final path.
type directCommitter struct {
	root    *os.Root
	rel     string
	file    *os.File
	modTime time.Time
}

// Write implements io.Writer.
func (c *directCommitter) Write(p []byte) (int, error) {
	return c.file.Write(p)
}

// Commit closes the file and applies times.
func (c *directCommitter) Commit() error {
	if err := c.file.Close(); err != nil {
		_ = c.root.Remove(c.rel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close file: %w", err)
	}
	if !c.modTime.IsZero() {
		if err := c.root.Chtimes(c.rel, c.modTime, c.modTime); err != nil {
			return fmt.Errorf("chtimes: %w", err)
		}
	}
	return nil
}

// Discard closes and removes the file.
func (c *directCommitter) Discard() error {
	_ = c.file.Close() //nolint:errcheck // best-effort cleanup
	return c.root.Remove(c.rel)
}

// replaceable removes an existing regular file at rel so a rename can take
// its place on every platform. Directories are never replaced.
func replaceable(root *os.Root, rel string) error {
	info, err := root.Lstat(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &fs.PathError{Op: "replace", Path: rel, Err: errors.New("is a directory")}
	}
	return root.Remove(rel)
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
