// Package testutil builds AFS archive images and byte sources for tests.
package testutil

import (
	"io"
	"sync/atomic"
)

// MockByteSource implements a simple in-memory byte source for tests.
// It counts the bytes handed out so tests can check what was read.
type MockByteSource struct {
	data      []byte
	sourceID  string
	bytesRead atomic.Int64
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data, sourceID: "mock"}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	m.bytesRead.Add(int64(n))
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// SourceID returns a stable identifier for the source data.
func (m *MockByteSource) SourceID() string {
	return m.sourceID
}

// BytesRead returns the number of bytes returned by ReadAt so far.
func (m *MockByteSource) BytesRead() int64 {
	return m.bytesRead.Load()
}
