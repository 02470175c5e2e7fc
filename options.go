package afs

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
)

// Option configures parsing and extraction.
type Option func(*options)

type options struct {
	logger       logrus.FieldLogger
	progress     ProgressFunc
	nameEncoding encoding.Encoding // nil = strict UTF-8
	location     *time.Location

	destination  string
	listFile     string
	directWrites bool
	batchWorkers int
}

func newOptions(opts []Option) options {
	o := options{
		location:     time.Local,
		batchWorkers: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = discardLogger()
	}
	return o
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// emit sends ev to the progress callback, if any.
func (o *options) emit(ev ProgressEvent) {
	if o.progress != nil {
		o.progress(ev)
	}
}

// WithLogger sets the logger used for parse stages and extraction.
// By default nothing is logged.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProgress sets a callback that receives one event per parse stage and
// per extracted file.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithNameEncoding decodes stored file names with enc instead of UTF-8.
// Archives from Japanese titles commonly use Shift JIS. A nil enc restores
// strict UTF-8 decoding.
func WithNameEncoding(enc encoding.Encoding) Option {
	return func(o *options) {
		o.nameEncoding = enc
	}
}

// WithLocation sets the time zone stored dates are interpreted in.
// The default is the local time zone.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithDestination extracts into dir instead of a directory named after the
// archive. dir must not exist.
func WithDestination(dir string) Option {
	return func(o *options) {
		o.destination = dir
	}
}

// WithListFile writes a list of the extracted files, in archive order, to
// path. Each line holds the name, the size and the sha256 digest separated
// by tabs.
func WithListFile(path string) Option {
	return func(o *options) {
		o.listFile = path
	}
}

// WithDirectWrites writes extracted files in place instead of through a
// temporary file that is renamed on completion.
func WithDirectWrites(enabled bool) Option {
	return func(o *options) {
		o.directWrites = enabled
	}
}

// WithBatchWorkers sets how many archives ExtractBatch extracts at once.
// Each archive is still parsed and extracted sequentially.
// Values < 1 are treated as 1.
func WithBatchWorkers(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.batchWorkers = n
	}
}
