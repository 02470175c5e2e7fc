package afs

import (
	"bytes"

	"github.com/meigma/afs/internal/cursor"
)

// Signatures are the first four bytes of an archive. The big-endian marker
// is the little-endian one reversed.
var (
	signatureLittle = []byte("AFS\x00")
	signatureBig    = []byte("\x00SFA")
)

// resolveEndianness reads the signature and returns the byte order it
// selects.
func resolveEndianness(c *cursor.Cursor) (Endianness, error) {
	sig, err := c.Read(len(signatureLittle))
	if err != nil {
		return 0, ErrBadSignature.Wrap(err, "")
	}
	switch {
	case bytes.Equal(sig, signatureLittle):
		return LittleEndian, nil
	case bytes.Equal(sig, signatureBig):
		return BigEndian, nil
	default:
		return 0, ErrBadSignature.New(sig)
	}
}
