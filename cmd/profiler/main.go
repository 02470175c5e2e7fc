package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/afs"
	afshttp "github.com/meigma/afs/http"
	"github.com/meigma/afs/internal/source"
	"github.com/meigma/afs/internal/testutil"
)

const (
	sourceMemory = "memory"
	sourceFile   = "file"
	sourceZstd   = "zstd"
	sourceHTTP   = "http"
)

type config struct {
	mode            string
	files           int
	fileSize        int
	archives        int
	workers         int
	pattern         string
	source          string
	dataURL         string
	dataHTTPLatency time.Duration
	fgProfile       string
	duration        time.Duration
	iterations      int
	pprofAddr       string
	cpuProfile      string
	memProfile      string
	traceFile       string
	directWrites    bool
	readRandom      bool
	tempDir         string
	keepTemp        bool
	randomSeed      int64
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkArchive *afs.Archive
	sinkCount   int
)

//nolint:gocognit,gocyclo // main function complexity is acceptable for CLI tool
func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	data := makeArchive(cfg.files, cfg.fileSize, cfg.pattern, cfg.randomSeed)
	src, path, cleanupSource, err := openSource(cfg, dir, data)
	if err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}
	if cleanupSource != nil {
		defer cleanupSource()
	}

	var stopFG func() error
	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		stopFG = fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, src, path, dir)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	summary := fmt.Sprintf("mode=%s source=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s",
		cfg.mode,
		cfg.source,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
	if hs, ok := src.(*afshttp.Source); ok {
		summary += " " + transferStats(hs)
	}
	fmt.Println(summary)
}

type profileStats struct {
	ops     int
	bytes   int64
	elapsed time.Duration
}

//nolint:gocognit,gocyclo,gocritic // complexity is inherent to multi-mode profiler dispatch; hugeParam acceptable for profiler
func runProfile(cfg config, src afs.ByteSource, path, rootDir string) (profileStats, error) {
	start := time.Now()
	ops := 0
	var byteCount int64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	switch cfg.mode {
	case "parse":
		for shouldContinue() {
			a, err := afs.Parse(src)
			if err != nil {
				return profileStats{}, err
			}
			sinkArchive = a
			byteCount += int64(a.AttributeTable().End())
			ops++
		}

	case "read":
		a, err := afs.Parse(src)
		if err != nil {
			return profileStats{}, err
		}
		rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks
		for shouldContinue() {
			i := ops % a.Len()
			if cfg.readRandom {
				i = rng.Intn(a.Len())
			}
			n, err := io.Copy(io.Discard, a.Section(i))
			if err != nil {
				return profileStats{}, err
			}
			byteCount += n
			ops++
		}

	case "extract":
		a, err := afs.Parse(src)
		if err != nil {
			return profileStats{}, err
		}
		for shouldContinue() {
			destDir := filepath.Join(rootDir, "extract", fmt.Sprintf("iter-%d", ops))
			res, err := a.ExtractTo(destDir, afs.WithDirectWrites(cfg.directWrites))
			if err != nil {
				return profileStats{}, err
			}
			for _, f := range res.Files {
				byteCount += f.Size
			}
			if err := os.RemoveAll(destDir); err != nil {
				return profileStats{}, err
			}
			ops++
		}

	case "batch":
		if path == "" {
			return profileStats{}, errors.New("batch requires a file or zstd source")
		}
		batchDir := filepath.Join(rootDir, "batch")
		if err := os.MkdirAll(batchDir, 0o750); err != nil {
			return profileStats{}, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return profileStats{}, err
		}
		for i := range cfg.archives {
			name := filepath.Join(batchDir, fmt.Sprintf("archive%03d%s", i, afs.ArchiveExt))
			if err := os.WriteFile(name, content, 0o600); err != nil {
				return profileStats{}, err
			}
		}

		start = time.Now()
		for shouldContinue() {
			results, err := afs.ExtractBatch(context.Background(), batchDir,
				afs.WithBatchWorkers(cfg.workers),
				afs.WithDirectWrites(cfg.directWrites))
			if err != nil {
				return profileStats{}, err
			}
			for _, res := range results {
				for _, f := range res.Files {
					byteCount += f.Size
				}
				if err := os.RemoveAll(res.Destination); err != nil {
					return profileStats{}, err
				}
			}
			sinkCount = len(results)
			ops++
		}

	case "builder":
		for shouldContinue() {
			out := makeArchive(cfg.files, cfg.fileSize, cfg.pattern, cfg.randomSeed)
			byteCount += int64(len(out))
			ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func parseFlags() config {
	var cfg config

	flag.StringVar(&cfg.mode, "mode", "parse", "mode: parse, read, extract, batch, builder")
	flag.IntVar(&cfg.files, "files", 512, "number of files in the archive")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "file size in bytes")
	flag.IntVar(&cfg.archives, "archives", 8, "number of archives (batch mode only)")
	flag.IntVar(&cfg.workers, "workers", runtime.NumCPU(), "batch workers (batch mode only)")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.StringVar(&cfg.source, "source", sourceMemory, "source: memory, file, zstd, http")
	flag.StringVar(&cfg.dataURL, "data-url", "local", "archive URL for the http source (\"local\" serves the generated archive)")
	flag.DurationVar(&cfg.dataHTTPLatency, "data-http-latency", 0, "per-request latency of the local archive server")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.BoolVar(&cfg.directWrites, "direct-writes", false, "write extracted files in place")
	flag.BoolVar(&cfg.readRandom, "read-random", true, "randomize file selection in read mode")
	flag.StringVar(&cfg.tempDir, "temp-dir", "", "directory to use for dataset")
	flag.BoolVar(&cfg.keepTemp, "keep-temp", false, "keep temp dir after run")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	return cfg
}

func setupTempDir(cfg config) (string, func() error, error) {
	if cfg.tempDir != "" {
		if err := os.MkdirAll(cfg.tempDir, 0o750); err != nil {
			return "", nil, err
		}
		return cfg.tempDir, nil, nil
	}
	dir, err := os.MkdirTemp("", "afs-profiler-*")
	if err != nil {
		return "", nil, err
	}
	if cfg.keepTemp {
		log.Printf("keeping temp dir %s", dir)
		return dir, nil, nil
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}

// makeArchive builds an archive image of fileCount files.
func makeArchive(fileCount, fileSize int, pattern string, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // intentional for reproducible benchmarks
	b := testutil.Builder{Files: make([]testutil.File, fileCount)}
	for i := range b.Files {
		content := make([]byte, fileSize)
		if pattern == "random" {
			_, _ = rng.Read(content)
		} else {
			for j := range content {
				content[j] = byte('a' + (i+j)%26)
			}
		}
		b.Files[i] = testutil.File{
			Name: fmt.Sprintf("file%05d.bin", i),
			Data: content,
			Date: [6]uint16{2001, 2, 3, 4, 5, 6},
		}
	}
	return b.Bytes()
}

// openSource returns the archive as the configured byte source. path is set
// for the file and zstd sources.
func openSource(cfg config, dir string, data []byte) (afs.ByteSource, string, func(), error) {
	switch cfg.source {
	case sourceMemory:
		return bytes.NewReader(data), "", nil, nil

	case sourceFile, sourceZstd:
		content := data
		if cfg.source == sourceZstd {
			enc, err := zstd.NewWriter(nil)
			if err != nil {
				return nil, "", nil, err
			}
			content = enc.EncodeAll(data, nil)
			_ = enc.Close()
		}
		path := filepath.Join(dir, "profile"+afs.ArchiveExt)
		if err := os.WriteFile(path, content, 0o600); err != nil {
			return nil, "", nil, err
		}
		src, err := source.Open(path)
		if err != nil {
			return nil, "", nil, err
		}
		return src, path, func() { _ = src.Close() }, nil

	case sourceHTTP:
		src, cleanup, err := newHTTPSource(cfg, data)
		if err != nil {
			return nil, "", nil, err
		}
		return src, "", cleanup, nil

	default:
		return nil, "", nil, fmt.Errorf("unknown source: %s", cfg.source)
	}
}
