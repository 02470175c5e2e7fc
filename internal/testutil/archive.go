package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Entry sizes of the AFS layout.
const (
	HeaderSize         = 8
	TokenEntrySize     = 8
	NameFieldSize      = 32
	AttributeEntrySize = 48
)

// File is one file stored by Builder.
type File struct {
	// Name is written UTF-8 encoded unless NameBytes is set.
	Name string

	// NameBytes, if non-nil, is written as the raw name field (truncated
	// or NUL-padded to 32 bytes).
	NameBytes []byte

	// Data is the file content.
	Data []byte

	// Date is year, month, day, hour, minute, second.
	Date [6]uint16

	// AttributeSize overrides the size written to the attribute table.
	// Nil writes len(Data).
	AttributeSize *uint32

	// TokenSize overrides the size written to the token table.
	// Nil writes len(Data).
	TokenSize *uint32

	// TokenOffset overrides the offset written to the token table. The data
	// is still stored at its laid out position.
	TokenOffset *uint32
}

// Builder produces AFS archive images. The zero value builds a
// little-endian archive with no files.
//
// Layout: header, token table, Padding zero locator pairs, the locator
// pair, file data aligned to Align bytes (with at least one alignment step
// of gap after the locator), then the attribute table.
type Builder struct {
	Files []File

	// BigEndian selects the "\x00SFA" signature and big-endian integers.
	BigEndian bool

	// Signature, if non-nil, replaces the first four bytes.
	Signature []byte

	// Padding is the number of zero-offset locator pairs before the real one.
	Padding int

	// Align is the data alignment. Zero means 16.
	Align int

	// OmitAttributeTable leaves the whole locator region zero.
	OmitAttributeTable bool

	// TableSizeDelta is added to the attribute table size written in the
	// locator pair.
	TableSizeDelta int
}

// Layout reports where Build placed things.
type Layout struct {
	DataOffsets []uint32
	TableOffset uint32
	TableSize   uint32
}

// Build returns the archive image and its layout.
func (b Builder) Build() ([]byte, Layout) {
	order := binary.ByteOrder(binary.LittleEndian)
	sig := []byte("AFS\x00")
	if b.BigEndian {
		order = binary.BigEndian
		sig = []byte("\x00SFA")
	}
	if b.Signature != nil {
		sig = b.Signature
	}
	align := b.Align
	if align == 0 {
		align = 16
	}

	n := len(b.Files)
	locatorEnd := HeaderSize + TokenEntrySize*n + TokenEntrySize*(b.Padding+1)
	pos := alignUp(locatorEnd, align)
	if pos == locatorEnd {
		// The locator must end before the first file's data.
		pos += align
	}

	var layout Layout
	for _, f := range b.Files {
		layout.DataOffsets = append(layout.DataOffsets, uint32(pos)) //nolint:gosec // test sizes are small
		pos = alignUp(pos+len(f.Data), align)
	}
	//nolint:gosec // test sizes are small
	layout.TableOffset, layout.TableSize = uint32(pos), uint32(AttributeEntrySize*n)
	total := pos + AttributeEntrySize*n

	buf := make([]byte, total)
	copy(buf[0:4], sig)
	order.PutUint32(buf[4:8], uint32(n)) //nolint:gosec // test sizes are small

	for i, f := range b.Files {
		at := HeaderSize + TokenEntrySize*i
		offset := layout.DataOffsets[i]
		if f.TokenOffset != nil {
			offset = *f.TokenOffset
		}
		order.PutUint32(buf[at:], offset)
		order.PutUint32(buf[at+4:], sizeOr(f.TokenSize, len(f.Data)))
		copy(buf[layout.DataOffsets[i]:], f.Data)
	}

	if !b.OmitAttributeTable {
		at := HeaderSize + TokenEntrySize*n + TokenEntrySize*b.Padding
		order.PutUint32(buf[at:], layout.TableOffset)
		order.PutUint32(buf[at+4:], uint32(int(layout.TableSize)+b.TableSizeDelta)) //nolint:gosec // test sizes are small
	}

	for i, f := range b.Files {
		at := int(layout.TableOffset) + AttributeEntrySize*i
		name := f.NameBytes
		if name == nil {
			name = []byte(f.Name)
		}
		copy(buf[at:at+NameFieldSize], name)
		for j, v := range f.Date {
			order.PutUint16(buf[at+NameFieldSize+2*j:], v)
		}
		order.PutUint32(buf[at+NameFieldSize+12:], sizeOr(f.AttributeSize, len(f.Data)))
	}
	return buf, layout
}

// Bytes returns the archive image.
func (b Builder) Bytes() []byte {
	data, _ := b.Build()
	return data
}

// WriteFile writes the archive image to dir/name and returns its path.
func (b Builder) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0o600); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func sizeOr(override *uint32, n int) uint32 {
	if override != nil {
		return *override
	}
	return uint32(n) //nolint:gosec // test sizes are small
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// Uint32 returns a pointer to v.
func Uint32(v uint32) *uint32 {
	return &v
}
