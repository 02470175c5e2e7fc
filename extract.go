package afs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	"github.com/meigma/afs/internal/listfile"
	"github.com/meigma/afs/internal/sink"
)

// ExtractResult describes a completed extraction.
type ExtractResult struct {
	// Archive is the path of the extracted archive, if known.
	Archive string

	// Destination is the directory the files were written to.
	Destination string

	// Files lists the written files in archive order.
	Files []ExtractedFile

	// InvalidTimestamps counts files whose stored date could not be applied.
	InvalidTimestamps int
}

// ExtractedFile describes one written file.
type ExtractedFile struct {
	// Name is the path relative to the destination.
	Name string

	// Size is the number of bytes written.
	Size int64

	// Digest is the sha256 digest of the written bytes.
	Digest digest.Digest

	// ModTime is the restored modification time, or the zero time if the
	// stored date was invalid.
	ModTime time.Time
}

// DefaultDestination returns the directory an archive is extracted to when
// no destination is given: its path without the extension. For a name that
// is only an extension, such as ".afs", there is no usable default and
// Extract fails with ErrNoDestination.
func DefaultDestination(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// defaultDestination is DefaultDestination, rejecting names that are only an
// extension.
func defaultDestination(path string) (string, error) {
	if base := filepath.Base(path); base == filepath.Ext(base) {
		return "", ErrNoDestination.New(path)
	}
	return DefaultDestination(path), nil
}

// Extract opens the archive at path and extracts every file into a new
// directory named after the archive (see DefaultDestination and
// WithDestination).
//
// The archive is parsed completely before the destination is created, so a
// malformed archive leaves nothing behind. If the destination exists,
// Extract returns an ErrAlreadyExists error and writes nothing.
func Extract(path string, opts ...Option) (*ExtractResult, error) {
	o := newOptions(opts)
	dest := o.destination
	if dest == "" {
		var err error
		if dest, err = defaultDestination(path); err != nil {
			return nil, err
		}
	}

	rc, err := open(path, o)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return rc.extractTo(dest, &o)
}

// ExtractTo writes every file into dest, which must not exist. opts are
// applied on top of the options the archive was parsed with.
//
// Files are written in archive order. An invalid stored date is logged and
// skipped; any other failure stops the extraction and leaves the files
// written so far in place.
func (a *Archive) ExtractTo(dest string, opts ...Option) (*ExtractResult, error) {
	o := a.opts
	for _, opt := range opts {
		opt(&o)
	}
	return a.extractTo(dest, &o)
}

func (a *Archive) extractTo(dest string, o *options) (*ExtractResult, error) {
	log := o.logger.WithField("destination", dest)
	if a.path != "" {
		log = log.WithField("archive", a.path)
	}

	if err := os.Mkdir(dest, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrAlreadyExists.New(dest)
		}
		return nil, ErrExtract.Wrap(err, dest)
	}

	s, err := sink.Open(dest, sink.WithDirectWrites(o.directWrites))
	if err != nil {
		return nil, ErrExtract.Wrap(err, dest)
	}
	defer s.Close()

	var list *listfile.Writer
	if o.listFile != "" {
		if list, err = listfile.Create(o.listFile); err != nil {
			return nil, ErrExtract.Wrap(err, o.listFile)
		}
		defer func() {
			if list != nil {
				_ = list.Close() //nolint:errcheck // error path; the extraction error is reported
			}
		}()
	}

	res := &ExtractResult{
		Archive:     a.path,
		Destination: dest,
		Files:       make([]ExtractedFile, 0, len(a.tokens)),
	}
	seen := make(map[string]int, len(a.tokens))
	for i, name := range a.FileNames() {
		tok := a.tokens[i]
		if !tok.HasName() {
			log.WithField("index", i).Infof("no file name found, using %s", name)
		}
		if prev, dup := seen[name]; dup {
			log.WithFields(logrus.Fields{"name": name, "index": i, "previous": prev}).
				Warn("duplicate file name, later file replaces earlier one")
		}
		seen[name] = i
		o.emit(ProgressEvent{Stage: StageExtracting, Path: name, FilesDone: i, FilesTotal: len(a.tokens)})

		modTime := a.modTime(tok, o.location, log.WithField("name", name))
		if modTime.IsZero() {
			res.InvalidTimestamps++
		}

		f, err := a.extractFile(s, i, name, modTime)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, f)
		if list != nil {
			if err := list.Add(listfile.Entry{Name: f.Name, Size: f.Size, Digest: f.Digest}); err != nil {
				return nil, ErrExtract.Wrap(err, o.listFile)
			}
		}
		log.WithFields(logrus.Fields{"name": name, "size": f.Size}).Debug("file extracted")
	}

	if list != nil {
		err := list.Close()
		list = nil
		if err != nil {
			return nil, ErrExtract.Wrap(err, o.listFile)
		}
	}

	o.emit(ProgressEvent{Stage: StageExtracted, FilesDone: len(a.tokens), FilesTotal: len(a.tokens)})
	log.WithFields(logrus.Fields{
		"stage":              StageExtracted.String(),
		"files":              len(res.Files),
		"invalid_timestamps": res.InvalidTimestamps,
	}).Info(StageExtracted.String())
	return res, nil
}

// modTime converts the stored date of tok, logging and returning the zero
// time if it is not a valid date.
func (a *Archive) modTime(tok Token, loc *time.Location, log logrus.FieldLogger) time.Time {
	if tok.Timestamp == nil {
		return time.Time{}
	}
	t, err := tok.Timestamp.Time(loc)
	if err != nil {
		log.WithError(err).Warn("cannot restore file time")
		return time.Time{}
	}
	return t
}

// extractFile copies exactly the i-th file's bytes into name.
func (a *Archive) extractFile(s *sink.Sink, i int, name string, modTime time.Time) (ExtractedFile, error) {
	tok := a.tokens[i]
	w, err := s.Writer(name, modTime)
	if err != nil {
		return ExtractedFile{}, ErrExtract.Wrap(err, name)
	}

	digester := digest.Canonical.Digester()
	n, err := io.Copy(io.MultiWriter(w, digester.Hash()), a.Section(i))
	if err == nil && n != int64(tok.Size) {
		err = ErrTruncated.New(fmt.Sprintf("data of %s (%d of %d bytes at offset %d)", name, n, tok.Size, tok.Offset))
	}
	if err != nil {
		_ = w.Discard() //nolint:errcheck // best-effort cleanup
		if ErrTruncated.Is(err) {
			return ExtractedFile{}, err
		}
		return ExtractedFile{}, ErrExtract.Wrap(err, name)
	}
	if err := w.Commit(); err != nil {
		return ExtractedFile{}, ErrExtract.Wrap(err, name)
	}

	return ExtractedFile{
		Name:    name,
		Size:    n,
		Digest:  digester.Digest(),
		ModTime: modTime,
	}, nil
}
