// Package listfile reads and writes extraction list files.
//
// A list file records the files extracted from an archive in archive order,
// one per line:
//
//	name<TAB>size<TAB>digest
//
// The digest is the canonical (sha256) digest of the extracted content.
package listfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Entry is one line of a list file.
type Entry struct {
	Name   string
	Size   int64
	Digest digest.Digest
}

// ErrMismatch is returned by Verify when a file differs from its entry.
var ErrMismatch = errors.New("listfile: content mismatch")

// Writer appends entries to a list file.
type Writer struct {
	f  *os.File
	bw *bufio.Writer
}

// Create creates or truncates the list file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, bw: bufio.NewWriter(f)}, nil
}

// Add appends e.
func (w *Writer) Add(e Entry) error {
	if strings.ContainsAny(e.Name, "\t\n") {
		return fmt.Errorf("listfile: name %q contains a tab or newline", e.Name)
	}
	_, err := fmt.Fprintf(w.bw, "%s\t%d\t%s\n", e.Name, e.Size, e.Digest)
	return err
}

// Close flushes buffered lines and closes the file.
func (w *Writer) Close() error {
	flushErr := w.bw.Flush()
	closeErr := w.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Read parses a list file.
func Read(r io.Reader) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("listfile: line %d: want 3 fields, got %d", line, len(fields))
		}
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("listfile: line %d: size: %w", line, err)
		}
		d, err := digest.Parse(fields[2])
		if err != nil {
			return nil, fmt.Errorf("listfile: line %d: digest: %w", line, err)
		}
		entries = append(entries, Entry{Name: fields[0], Size: size, Digest: d})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadFile parses the list file at path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Verify checks that every entry exists below dir with the recorded size and
// digest. When a name occurs more than once only its last entry is checked,
// because extraction lets later files replace earlier ones.
func Verify(dir string, entries []Entry) error {
	last := make(map[string]int, len(entries))
	for i, e := range entries {
		last[e.Name] = i
	}
	for i, e := range entries {
		if last[e.Name] != i {
			continue
		}
		if err := verifyEntry(dir, e); err != nil {
			return err
		}
	}
	return nil
}

func verifyEntry(dir string, e Entry) error {
	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(e.Name)))
	if err != nil {
		return err
	}
	defer f.Close()

	verifier := e.Digest.Verifier()
	n, err := io.Copy(verifier, f)
	if err != nil {
		return err
	}
	if n != e.Size {
		return fmt.Errorf("%s: size %d, want %d: %w", e.Name, n, e.Size, ErrMismatch)
	}
	if !verifier.Verified() {
		return fmt.Errorf("%s: digest differs from %s: %w", e.Name, e.Digest, ErrMismatch)
	}
	return nil
}
