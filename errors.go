package afs

import errors "gopkg.in/src-d/go-errors.v1"

// Fatal error kinds. Any of these rejects the archive being processed.
var (
	// ErrBadSignature is returned when the first four bytes are neither
	// "AFS\x00" nor "\x00SFA".
	ErrBadSignature = errors.NewKind("afs: bad signature %q")

	// ErrMisaligned is returned when the cursor is not directly after the
	// token table when the attribute table search starts.
	ErrMisaligned = errors.NewKind("afs: cursor at offset %d, expected %d after token table")

	// ErrMissingAttributeTable is returned when no non-zero attribute table
	// offset is found before the first file's data.
	ErrMissingAttributeTable = errors.NewKind("afs: no attribute table found before offset %d")

	// ErrDecoding is returned when a file name is not valid text.
	ErrDecoding = errors.NewKind("afs: cannot decode name of file %d")

	// ErrIncompleteTable is returned when reading the attribute table does not
	// end exactly where the locator said it would.
	ErrIncompleteTable = errors.NewKind("afs: attribute table ended at offset %d, expected %d")

	// ErrNoDestination is returned when no destination is given and the
	// archive name has nothing left once its extension is removed, as for
	// a file named ".afs".
	ErrNoDestination = errors.NewKind("afs: cannot derive a destination from %s")

	// ErrAlreadyExists is returned when the extraction destination exists.
	ErrAlreadyExists = errors.NewKind("afs: destination %s already exists")

	// ErrTruncated is returned when the archive ends before a structure or a
	// file payload is complete.
	ErrTruncated = errors.NewKind("afs: archive truncated while reading %s")

	// ErrExtract is returned when writing an extracted file fails.
	ErrExtract = errors.NewKind("afs: cannot extract %s")
)

// ErrInvalidTimestamp reports a stored date that is not a valid calendar
// date and time. It is never fatal: extraction logs it and keeps the
// file's current timestamps.
var ErrInvalidTimestamp = errors.NewKind("afs: invalid timestamp %s")
