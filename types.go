package afs

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Endianness is the byte order of every multi-byte integer in an archive.
type Endianness uint8

// Byte orders selected by the archive signature.
const (
	LittleEndian Endianness = iota
	BigEndian
)

// String returns the string representation of the byte order.
func (e Endianness) String() string {
	switch e {
	case LittleEndian:
		return "little-endian"
	case BigEndian:
		return "big-endian"
	default:
		return "unknown"
	}
}

// ByteOrder returns the encoding/binary order for e.
func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Timestamp is the date stored for a file in the attribute table.
// Values are kept exactly as stored and may not form a valid date.
type Timestamp struct {
	Year, Month, Day     uint16
	Hour, Minute, Second uint16
}

// String formats the timestamp without validating it.
func (ts Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second)
}

// Time converts the timestamp to a time.Time in loc.
// It returns an ErrInvalidTimestamp error if any field is out of range.
func (ts Timestamp) Time(loc *time.Location) (time.Time, error) {
	if !ts.valid() {
		return time.Time{}, ErrInvalidTimestamp.New(ts.String())
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(int(ts.Year), time.Month(ts.Month), int(ts.Day),
		int(ts.Hour), int(ts.Minute), int(ts.Second), 0, loc), nil
}

// valid reports whether ts names a real calendar date and time of day.
// time.Date normalizes overflow, so the ranges are checked up front.
func (ts Timestamp) valid() bool {
	if ts.Year < 1 || ts.Year > 9999 || ts.Month < 1 || ts.Month > 12 {
		return false
	}
	if ts.Hour > 23 || ts.Minute > 59 || ts.Second > 59 {
		return false
	}
	return ts.Day >= 1 && int(ts.Day) <= daysIn(time.Month(ts.Month), int(ts.Year))
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Token describes one file stored in the archive.
//
// Offset and Size come from the token table. Name, FileSize and Timestamp
// come from the attribute table and are nil until it has been read.
type Token struct {
	// Offset is the absolute position of the file's data in the archive.
	Offset uint32

	// Size is the number of data bytes, as recorded in the token table.
	Size uint32

	// Name is the decoded file name. An empty name means the archive did
	// not record one.
	Name *string

	// FileSize is the size recorded in the attribute table. It usually
	// equals Size but is not required to.
	FileSize *uint32

	// Timestamp is the stored modification date.
	Timestamp *Timestamp
}

// DisplayName returns the stored name, or "" if there is none.
func (t Token) DisplayName() string {
	if t.Name == nil {
		return ""
	}
	return *t.Name
}

// HasName reports whether the archive recorded a non-empty name.
func (t Token) HasName() bool {
	return t.Name != nil && *t.Name != ""
}

// attributes is one decoded attribute table entry.
type attributes struct {
	name      string
	timestamp Timestamp
	fileSize  uint32
}

// withAttributes returns a copy of t carrying attrs.
func (t Token) withAttributes(attrs attributes) Token {
	name := attrs.name
	ts := attrs.timestamp
	size := attrs.fileSize
	t.Name = &name
	t.Timestamp = &ts
	t.FileSize = &size
	return t
}

// AttributeTable is the location of the attribute table as found by the
// locator.
type AttributeTable struct {
	Offset uint32
	Size   uint32
}

// End returns the offset just past the table.
func (a AttributeTable) End() int64 {
	return int64(a.Offset) + int64(a.Size)
}
