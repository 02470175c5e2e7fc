package afs

// ProgressEvent represents a progress update while parsing or extracting an
// archive.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the file currently being processed, if applicable.
	Path string

	// Offset is the cursor position when the stage completed.
	Offset int64

	// FilesDone is the number of files extracted so far.
	FilesDone int

	// FilesTotal is the number of files declared by the archive.
	// Zero until the token table has been read.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Stages in the order a successful extraction passes through them.
const (
	// StageSignatureChecked indicates the signature and byte order are known.
	StageSignatureChecked ProgressStage = iota

	// StageTokensRead indicates the token table has been read.
	StageTokensRead

	// StageAttributeTableLocated indicates the attribute table was found.
	StageAttributeTableLocated

	// StageAttributesRead indicates names, dates and sizes have been read.
	StageAttributesRead

	// StageReady indicates the archive is fully parsed.
	StageReady

	// StageExtracting indicates a file is being written.
	StageExtracting

	// StageExtracted indicates every file has been written.
	StageExtracted
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageSignatureChecked:
		return "signature checked"
	case StageTokensRead:
		return "tokens read"
	case StageAttributeTableLocated:
		return "attribute table located"
	case StageAttributesRead:
		return "attributes read"
	case StageReady:
		return "ready"
	case StageExtracting:
		return "extracting"
	case StageExtracted:
		return "extracted"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// During batch extraction it is called from several goroutines and must be
// safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
