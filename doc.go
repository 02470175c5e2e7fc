// Package afs reads and unpacks AFS archives, the container format used by
// many console game asset pipelines to bundle files with their names,
// timestamps and sizes.
//
// An archive is laid out as:
//   - Signature: "AFS\x00" (little-endian) or "\x00SFA" (big-endian)
//   - File count: u32
//   - Token table: one (offset u32, size u32) pair per file
//   - Locator region: (offset u32, size u32) pairs, zero-offset padding until
//     the first pair naming the attribute table
//   - Attribute table: per file a 32-byte NUL-padded name, six u16 date
//     fields and a u32 file size
//
// Parsing is a single forward pass over the archive; any structural problem
// rejects the whole archive.
//
// # Quick Start
//
// Extract an archive next to itself:
//
//	res, err := afs.Extract("DATA/VOICE.AFS")
//	if err != nil {
//	    return err
//	}
//	fmt.Println("wrote", len(res.Files), "files to", res.Destination)
//
// Inspect without extracting:
//
//	rc, err := afs.Open("DATA/VOICE.AFS")
//	if err != nil {
//	    return err
//	}
//	defer rc.Close()
//	for _, tok := range rc.Tokens() {
//	    fmt.Println(tok.DisplayName(), tok.Size)
//	}
//
// # Remote archives
//
// OpenURL parses an archive served over HTTP using range requests, so only
// the header, the tables and the requested payloads are transferred.
package afs
