package http_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	afshttp "github.com/meigma/afs/http"
)

func serveBytes(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("ETag", `"archive"`)
		nethttp.ServeContent(w, r, "VOICE.AFS", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSource_ReadAt(t *testing.T) {
	t.Parallel()

	data := []byte("AFS\x00 payload bytes")
	server := serveBytes(t, data)

	src, err := afshttp.NewSource(server.URL)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	if src.Size() != int64(len(data)) {
		t.Fatalf("Size() = %d, want %d", src.Size(), len(data))
	}

	tests := []struct {
		name    string
		bufSize int
		offset  int64
		wantN   int
		wantErr error
		want    string
	}{
		{
			name:    "signature",
			bufSize: 4,
			offset:  0,
			wantN:   4,
			want:    "AFS\x00",
		},
		{
			name:    "read from middle",
			bufSize: 7,
			offset:  5,
			wantN:   7,
			want:    "payload",
		},
		{
			name:    "read past end returns EOF",
			bufSize: 10,
			offset:  int64(len(data) - 3),
			wantN:   3,
			wantErr: io.EOF,
			want:    "tes",
		},
		{
			name:    "offset at size",
			bufSize: 1,
			offset:  int64(len(data)),
			wantN:   0,
			wantErr: io.EOF,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := make([]byte, tt.bufSize)
			n, err := src.ReadAt(buf, tt.offset)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReadAt() error = %v, want %v", err, tt.wantErr)
			}
			if n != tt.wantN {
				t.Fatalf("ReadAt() n = %d, want %d", n, tt.wantN)
			}
			if got := string(buf[:n]); got != tt.want {
				t.Fatalf("ReadAt() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSource_SourceIDUsesETag(t *testing.T) {
	t.Parallel()

	server := serveBytes(t, []byte("0123456789"))

	src, err := afshttp.NewSource(server.URL)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	want := "url:" + server.URL + `|etag:"archive"`
	if got := src.SourceID(); got != want {
		t.Fatalf("SourceID() = %q, want %q", got, want)
	}
}

func TestSource_CountsTraffic(t *testing.T) {
	t.Parallel()

	server := serveBytes(t, bytes.Repeat([]byte{0xAA}, 4096))

	src, err := afshttp.NewSource(server.URL, afshttp.WithHeader("X-Test", "1"))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	buf := make([]byte, 16)
	if _, err := src.ReadAt(buf, 1024); err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if got := src.Requests(); got != 1 {
		t.Fatalf("Requests() = %d, want 1", got)
	}
	if got := src.BytesRead(); got != 16 {
		t.Fatalf("BytesRead() = %d, want 16", got)
	}
}

func TestNewSource_RangeUnsupported(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		_, _ = w.Write([]byte("range unsupported"))
	}))
	t.Cleanup(server.Close)

	_, err := afshttp.NewSource(server.URL)
	if !errors.Is(err, afshttp.ErrRangeUnsupported) {
		t.Fatalf("NewSource() error = %v, want %v", err, afshttp.ErrRangeUnsupported)
	}
}

func TestNewSource_CanceledContext(t *testing.T) {
	t.Parallel()

	server := serveBytes(t, []byte("data"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := afshttp.NewSource(server.URL, afshttp.WithContext(ctx)); err == nil {
		t.Fatal("expected error")
	}
}
