package afs

import (
	"fmt"

	"github.com/meigma/afs/internal/cursor"
)

// tokenEntrySize is the size of one (offset, size) pair.
const tokenEntrySize = 8

// headerSize covers the signature and the file count.
const headerSize = 8

// readTokenTable reads the file count and one (offset, size) pair per file.
// Values are not validated here; extraction bounds-checks them.
func readTokenTable(c *cursor.Cursor) ([]Token, error) {
	count, err := c.Uint32()
	if err != nil {
		return nil, ErrTruncated.Wrap(err, "file count")
	}
	if int64(count)*tokenEntrySize > c.Remaining() {
		return nil, ErrTruncated.New(fmt.Sprintf("token table of %d entries", count))
	}

	tokens := make([]Token, 0, count)
	for range count {
		offset, err := c.Uint32()
		if err != nil {
			return nil, ErrTruncated.Wrap(err, "token table")
		}
		size, err := c.Uint32()
		if err != nil {
			return nil, ErrTruncated.Wrap(err, "token table")
		}
		tokens = append(tokens, Token{Offset: offset, Size: size})
	}
	return tokens, nil
}
