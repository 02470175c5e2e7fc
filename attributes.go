package afs

import (
	"golang.org/x/text/encoding"

	"github.com/meigma/afs/internal/cursor"
)

// attributeEntrySize is one attribute table entry: name, six u16 date
// fields and the u32 file size.
const attributeEntrySize = nameFieldSize + 6*2 + 4

// locateAttributeTable scans the (offset, size) pairs following the token
// table for the first one with a non-zero offset, then moves the cursor to
// the table. Zero-offset pairs are padding. Every pair, including the
// accepted one, must end before the first file's data.
//
// It returns the table location and the number of bytes between the end of
// the accepted pair and the table, which are skipped without being checked.
func locateAttributeTable(c *cursor.Cursor, tokens []Token) (AttributeTable, int64, error) {
	want := int64(headerSize + tokenEntrySize*len(tokens))
	if c.Pos() != want {
		return AttributeTable{}, 0, ErrMisaligned.New(c.Pos(), want)
	}

	// Without files there is no data region to stop at.
	bound := c.Size()
	if len(tokens) > 0 {
		bound = int64(tokens[0].Offset)
	}

	var table AttributeTable
	for {
		if c.Remaining() < tokenEntrySize {
			return AttributeTable{}, 0, ErrMissingAttributeTable.New(bound)
		}
		offset, err := c.Uint32()
		if err != nil {
			return AttributeTable{}, 0, ErrTruncated.Wrap(err, "attribute table locator")
		}
		size, err := c.Uint32()
		if err != nil {
			return AttributeTable{}, 0, ErrTruncated.Wrap(err, "attribute table locator")
		}
		// The bound applies to the accepted pair too.
		if c.Pos() >= bound {
			return AttributeTable{}, 0, ErrMissingAttributeTable.New(bound)
		}
		if offset != 0 {
			table = AttributeTable{Offset: offset, Size: size}
			break
		}
	}

	skipped := int64(table.Offset) - c.Pos()
	if err := c.Seek(int64(table.Offset)); err != nil {
		return AttributeTable{}, 0, ErrTruncated.Wrap(err, "attribute table")
	}
	return table, skipped, nil
}

// readAttributeTable reads one entry per token, starting at the cursor, and
// returns the tokens with their names, dates and file sizes filled in. The
// cursor must finish exactly at table.End().
func readAttributeTable(c *cursor.Cursor, tokens []Token, table AttributeTable, enc encoding.Encoding) ([]Token, error) {
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		attrs, err := readAttributes(c, i, enc)
		if err != nil {
			return nil, err
		}
		out[i] = tok.withAttributes(attrs)
	}
	if c.Pos() != table.End() {
		return nil, ErrIncompleteTable.New(c.Pos(), table.End())
	}
	return out, nil
}

func readAttributes(c *cursor.Cursor, index int, enc encoding.Encoding) (attributes, error) {
	field, err := c.Read(nameFieldSize)
	if err != nil {
		return attributes{}, ErrTruncated.Wrap(err, "attribute table")
	}
	name, err := decodeName(field, enc)
	if err != nil {
		return attributes{}, ErrDecoding.Wrap(err, index)
	}

	var date [6]uint16
	for j := range date {
		if date[j], err = c.Uint16(); err != nil {
			return attributes{}, ErrTruncated.Wrap(err, "attribute table")
		}
	}
	fileSize, err := c.Uint32()
	if err != nil {
		return attributes{}, ErrTruncated.Wrap(err, "attribute table")
	}

	return attributes{
		name: name,
		timestamp: Timestamp{
			Year: date[0], Month: date[1], Day: date[2],
			Hour: date[3], Minute: date[4], Second: date[5],
		},
		fileSize: fileSize,
	}, nil
}
