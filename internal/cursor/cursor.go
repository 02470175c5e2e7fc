// Package cursor provides a position-tracking sequential reader over a
// random-access byte source.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrOutOfRange is returned when seeking outside the source.
var ErrOutOfRange = errors.New("cursor: offset out of range")

// Cursor reads sequentially from an io.ReaderAt and tracks the absolute
// position of the next read. Every multi-byte integer is decoded with the
// cursor's byte order, which defaults to little-endian.
//
// A Cursor is not safe for concurrent use.
type Cursor struct {
	r     io.ReaderAt
	size  int64
	pos   int64
	order binary.ByteOrder
}

// New returns a Cursor positioned at offset 0 of r. size is the total number
// of readable bytes in r.
func New(r io.ReaderAt, size int64) *Cursor {
	return &Cursor{
		r:     r,
		size:  size,
		order: binary.LittleEndian,
	}
}

// SetOrder sets the byte order used by Uint16 and Uint32.
func (c *Cursor) SetOrder(order binary.ByteOrder) {
	c.order = order
}

// Order returns the current byte order.
func (c *Cursor) Order() binary.ByteOrder {
	return c.order
}

// Pos returns the absolute offset of the next read.
func (c *Cursor) Pos() int64 {
	return c.pos
}

// Size returns the total size of the source.
func (c *Cursor) Size() int64 {
	return c.size
}

// Remaining returns the number of bytes between the cursor and the end of
// the source.
func (c *Cursor) Remaining() int64 {
	return c.size - c.pos
}

// Seek moves the cursor to the absolute offset off.
// Seeking to exactly Size is allowed; any later read fails.
func (c *Cursor) Seek(off int64) error {
	if off < 0 || off > c.size {
		return fmt.Errorf("seek to %d (size %d): %w", off, c.size, ErrOutOfRange)
	}
	c.pos = off
	return nil
}

// Read returns the next n bytes and advances the cursor past them.
// It returns an error wrapping io.ErrUnexpectedEOF if fewer than n bytes
// remain; the position is unchanged in that case.
func (c *Cursor) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("read %d bytes: negative length", n)
	}
	if int64(n) > c.Remaining() {
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", n, c.pos, io.ErrUnexpectedEOF)
	}
	buf := make([]byte, n)
	m, err := c.r.ReadAt(buf, c.pos)
	if m == n {
		err = nil
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", n, c.pos, err)
	}
	c.pos += int64(n)
	return buf, nil
}

// Uint16 reads a 2-byte unsigned integer.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Read(2)
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(b), nil
}

// Uint32 reads a 4-byte unsigned integer.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Read(4)
	if err != nil {
		return 0, err
	}
	return c.order.Uint32(b), nil
}
