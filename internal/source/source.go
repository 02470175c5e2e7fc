// Package source opens local archive files as random-access byte sources.
//
// Plain archives are read in place. Archives stored as a zstd stream (for
// example VOICE.AFS.zst) are decompressed into memory first, because the
// parser needs random access to the decompressed bytes.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// DefaultMaxDecoderMemory caps the decompressed size of a zstd archive.
const DefaultMaxDecoderMemory = 1 << 30 // 1 GiB

// zstdMagic is the little-endian frame magic number 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Source is a random-access view of an archive that must be closed.
type Source interface {
	io.ReaderAt
	io.Closer
	Size() int64
	SourceID() string
}

// Option configures Open.
type Option func(*config)

type config struct {
	maxDecoderMemory uint64
}

// WithMaxDecoderMemory limits the memory used when decompressing a zstd
// archive. Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(c *config) {
		c.maxDecoderMemory = limit
	}
}

// Open opens the archive at path.
func Open(path string, opts ...Option) (Source, error) {
	cfg := config{maxDecoderMemory: DefaultMaxDecoderMemory}
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	compressed, err := hasZstdMagic(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	if !compressed {
		return &fileSource{f: f, size: info.Size(), id: "file:" + path}, nil
	}

	defer f.Close()
	data, err := decompress(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return &memorySource{Reader: bytes.NewReader(data), id: "zstd:" + path}, nil
}

// hasZstdMagic reports whether r starts with a zstd frame.
func hasZstdMagic(r io.ReaderAt) (bool, error) {
	var head [4]byte
	n, err := r.ReadAt(head[:], 0)
	if n < len(head) {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(head[:], zstdMagic), nil
}

func decompress(r io.Reader, cfg config) ([]byte, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if cfg.maxDecoderMemory > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(cfg.maxDecoderMemory))
	}
	dec, err := zstd.NewReader(r, opts...)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

// fileSource reads directly from an open file.
type fileSource struct {
	f    *os.File
	size int64
	id   string
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }
func (s *fileSource) Close() error                            { return s.f.Close() }
func (s *fileSource) Size() int64                             { return s.size }
func (s *fileSource) SourceID() string                        { return s.id }

// memorySource holds a decompressed archive.
type memorySource struct {
	*bytes.Reader
	id string
}

func (s *memorySource) Close() error     { return nil }
func (s *memorySource) SourceID() string { return s.id }
