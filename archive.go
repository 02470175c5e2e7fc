package afs

import (
	"fmt"
	"io"
	"slices"

	"github.com/sirupsen/logrus"

	afshttp "github.com/meigma/afs/http"
	"github.com/meigma/afs/internal/cursor"
	"github.com/meigma/afs/internal/source"
)

// ByteSource provides random access to archive bytes.
//
// *bytes.Reader, *io.SectionReader and the sources returned by the http
// subpackage all satisfy it. Sources that also implement
// SourceID() string are identified by it in log records.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// Archive is a fully parsed AFS archive.
//
// An Archive is read-only after Parse returns. Its methods may be called
// concurrently, except that extraction of one archive must not run twice at
// once into the same destination.
type Archive struct {
	src        ByteSource
	path       string
	endianness Endianness
	fileCount  uint32
	tokens     []Token
	table      AttributeTable
	opts       options
}

// Parse reads the header, token table and attribute table from src.
//
// The returned Archive keeps src for reading file data; src must stay
// usable until the Archive is no longer needed.
func Parse(src ByteSource, opts ...Option) (*Archive, error) {
	return parse(src, newOptions(opts))
}

func parse(src ByteSource, o options) (*Archive, error) {
	log := o.logger
	if id, ok := src.(interface{ SourceID() string }); ok {
		log = log.WithField("source", id.SourceID())
	}
	p := &parser{c: cursor.New(src, src.Size()), opts: &o, log: log}

	a, err := p.run()
	if err != nil {
		log.WithError(err).WithField("offset", p.c.Pos()).Debug("archive rejected")
		return nil, err
	}
	a.src = src
	a.opts = o
	return a, nil
}

// parser walks the archive stages in order. Each stage is a precondition
// for the next; the first failure ends the parse.
type parser struct {
	c     *cursor.Cursor
	opts  *options
	log   logrus.FieldLogger
	total int
}

// done records the completion of stage.
func (p *parser) done(stage ProgressStage, fields logrus.Fields) {
	p.log.WithFields(fields).
		WithField("stage", stage.String()).
		WithField("offset", p.c.Pos()).
		Info(stage.String())
	p.opts.emit(ProgressEvent{Stage: stage, Offset: p.c.Pos(), FilesTotal: p.total})
}

func (p *parser) run() (*Archive, error) {
	endianness, err := resolveEndianness(p.c)
	if err != nil {
		return nil, err
	}
	p.c.SetOrder(endianness.ByteOrder())
	p.done(StageSignatureChecked, logrus.Fields{"byte_order": endianness.String()})

	tokens, err := readTokenTable(p.c)
	if err != nil {
		return nil, err
	}
	p.total = len(tokens)
	p.done(StageTokensRead, logrus.Fields{"files": len(tokens)})

	table, skipped, err := locateAttributeTable(p.c, tokens)
	if err != nil {
		return nil, err
	}
	p.done(StageAttributeTableLocated, logrus.Fields{
		"table_offset":  table.Offset,
		"table_size":    table.Size,
		"skipped_bytes": skipped,
	})

	tokens, err = readAttributeTable(p.c, tokens, table, p.opts.nameEncoding)
	if err != nil {
		return nil, err
	}
	for i, tok := range tokens {
		entry := p.log.WithFields(logrus.Fields{
			"index": i,
			"name":  tok.DisplayName(),
			"size":  tok.Size,
		})
		if *tok.FileSize != tok.Size {
			entry = entry.WithField("attribute_size", *tok.FileSize)
		}
		entry.Debug("file attributes")
	}
	p.done(StageAttributesRead, nil)

	a := &Archive{
		endianness: endianness,
		fileCount:  uint32(len(tokens)), //nolint:gosec // bounded by the u32 count read above
		tokens:     tokens,
		table:      table,
	}
	p.done(StageReady, nil)
	return a, nil
}

// Endianness returns the byte order selected by the signature.
func (a *Archive) Endianness() Endianness {
	return a.endianness
}

// FileCount returns the number of files declared in the header.
func (a *Archive) FileCount() uint32 {
	return a.fileCount
}

// Len returns the number of files in the archive.
func (a *Archive) Len() int {
	return len(a.tokens)
}

// Tokens returns the files in archive order. The slice is a copy; the
// pointed-to names, sizes and timestamps must not be modified.
func (a *Archive) Tokens() []Token {
	return slices.Clone(a.tokens)
}

// Token returns the i-th file. It panics if i is out of range.
func (a *Archive) Token(i int) Token {
	return a.tokens[i]
}

// AttributeTable returns where the attribute table was found.
func (a *Archive) AttributeTable() AttributeTable {
	return a.table
}

// Path returns the path the archive was opened from, or "" if it was parsed
// from a caller-supplied source.
func (a *Archive) Path() string {
	return a.path
}

// Section returns a reader over the data of the i-th file. It panics if i
// is out of range. Reads past the end of the archive return io.EOF early.
func (a *Archive) Section(i int) *io.SectionReader {
	tok := a.tokens[i]
	return io.NewSectionReader(a.src, int64(tok.Offset), int64(tok.Size))
}

// FileNames returns the name each file is extracted under, in archive
// order. Files without a stored name are called NO_NAME_0, NO_NAME_1, and
// so on, counting only unnamed files.
func (a *Archive) FileNames() []string {
	names := make([]string, len(a.tokens))
	unnamed := 0
	for i, tok := range a.tokens {
		if tok.HasName() {
			names[i] = *tok.Name
			continue
		}
		names[i] = fmt.Sprintf("NO_NAME_%d", unnamed)
		unnamed++
	}
	return names
}

// ReadCloser is an Archive backed by a file that Close releases.
type ReadCloser struct {
	*Archive
	closer io.Closer
}

// Close releases the underlying file.
func (rc *ReadCloser) Close() error {
	return rc.closer.Close()
}

// Open opens and parses the archive at path. Files holding a zstd stream
// are decompressed into memory first.
func Open(path string, opts ...Option) (*ReadCloser, error) {
	return open(path, newOptions(opts))
}

func open(path string, o options) (*ReadCloser, error) {
	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	a, err := parse(src, o)
	if err != nil {
		src.Close()
		return nil, err
	}
	a.path = path
	return &ReadCloser{Archive: a, closer: src}, nil
}

// OpenURL parses an archive served at url. The server must support HTTP
// range requests. File data is fetched only when extracted or read.
func OpenURL(url string, opts ...Option) (*Archive, error) {
	src, err := afshttp.NewSource(url)
	if err != nil {
		return nil, err
	}
	return Parse(src, opts...)
}
