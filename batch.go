package afs

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// ArchiveExt is the extension ExtractBatch looks for, compared
// case-insensitively.
const ArchiveExt = ".afs"

// FindArchives returns the regular files directly inside dir whose
// extension is ArchiveExt, sorted by name.
func FindArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ArchiveExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ExtractBatch extracts every archive found by FindArchives(dir), each into
// its own default destination. WithDestination and WithListFile are
// ignored.
//
// Archives are independent: a failing archive does not stop the others.
// The results of the successful extractions are returned in path order
// together with a *multierror.Error collecting every failure. Up to
// WithBatchWorkers archives are processed at once; once ctx is cancelled no
// further archives are started.
func ExtractBatch(ctx context.Context, dir string, opts ...Option) ([]*ExtractResult, error) {
	o := newOptions(opts)
	o.destination = ""
	o.listFile = ""

	paths, err := FindArchives(dir)
	if err != nil {
		return nil, err
	}
	log := o.logger.WithField("dir", dir)
	log.WithField("archives", len(paths)).Info("batch extraction")

	results := make([]*ExtractResult, len(paths))
	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.batchWorkers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := extractOne(path, o)
			if err != nil {
				log.WithError(err).WithField("archive", path).Error("extraction failed")
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := ctx.Err(); err != nil && errs == nil {
		errs = multierror.Append(errs, err)
	}

	done := make([]*ExtractResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			done = append(done, res)
		}
	}
	return done, errs.ErrorOrNil()
}

func extractOne(path string, o options) (*ExtractResult, error) {
	dest, err := defaultDestination(path)
	if err != nil {
		return nil, err
	}
	rc, err := open(path, o)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return rc.extractTo(dest, &o)
}
