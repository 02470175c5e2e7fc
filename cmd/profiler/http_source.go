package main

import (
	"bytes"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"time"

	"github.com/opencontainers/go-digest"

	afshttp "github.com/meigma/afs/http"
)

// localArchiveName is the name the generated archive is served under.
const localArchiveName = "profile.afs"

// newHTTPSource returns a range-request source for cfg.dataURL. With "local"
// the generated archive is served from an in-process server, delaying every
// response by cfg.dataHTTPLatency; the returned func stops that server.
func newHTTPSource(cfg config, data []byte) (*afshttp.Source, func(), error) {
	url := cfg.dataURL
	var cleanup func()
	switch url {
	case "":
		return nil, nil, errors.New("data-url is required for the http source")
	case "local":
		server := httptest.NewServer(archiveHandler(data, cfg.dataHTTPLatency))
		url = server.URL + "/" + localArchiveName
		cleanup = server.Close
	}

	src, err := afshttp.NewSource(url, afshttp.WithHeader("User-Agent", "afs-profiler"))
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, fmt.Errorf("open %s: %w", url, err)
	}
	return src, cleanup, nil
}

// archiveHandler serves data at /profile.afs with range support and a
// content digest as ETag.
func archiveHandler(data []byte, latency time.Duration) nethttp.Handler {
	etag := `"` + digest.FromBytes(data).Encoded() + `"`
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/"+localArchiveName, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if latency > 0 {
			time.Sleep(latency)
		}
		w.Header().Set("ETag", etag)
		nethttp.ServeContent(w, r, localArchiveName, time.Time{}, bytes.NewReader(data))
	})
	return mux
}

// transferStats formats the traffic of an HTTP source for the summary line.
func transferStats(src *afshttp.Source) string {
	return fmt.Sprintf("requests=%d transferred=%d", src.Requests(), src.BytesRead())
}
