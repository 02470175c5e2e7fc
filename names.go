package afs

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// nameFieldSize is the size of the NUL-padded name field.
const nameFieldSize = 32

var errInvalidText = errors.New("invalid text")

// decodeName trims NUL padding from a name field and decodes it.
// With a nil encoding the bytes must be valid UTF-8.
func decodeName(field []byte, enc encoding.Encoding) (string, error) {
	raw := bytes.Trim(field, "\x00")
	if enc == nil {
		if !utf8.Valid(raw) {
			return "", errInvalidText
		}
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	// x/text decoders substitute U+FFFD for bytes they cannot map.
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", errInvalidText
	}
	return string(out), nil
}

// LookupEncoding returns the name encoding registered under an IANA name
// such as "Shift_JIS", "EUC-JP" or "windows-1252". "UTF-8" and "" return
// nil, which selects strict UTF-8 decoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("lookup encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("lookup encoding %q: not supported", name)
	}
	return enc, nil
}
