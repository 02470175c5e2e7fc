package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/meigma/afs"
)

const (
	BatchDescription = "Extract every archive in a directory"
	BatchHelp        = BatchDescription + "\n\n" +
		"Every regular file with the .afs extension (any case) directly inside\n" +
		"DIR is extracted next to itself. A failing archive does not stop the\n" +
		"others; the command fails if any archive failed."
)

// Batch represents the `batch` command of the afs cli tool.
type Batch struct {
	Common

	Workers int  `short:"w" long:"workers" description:"Archives extracted at once. 0 uses the config file, then the number of CPUs."`
	Direct  bool `long:"direct" description:"Write files in place instead of through temporary files"`
	Args    struct {
		Dir string `positional-arg-name:"DIR" required:"true" description:"directory holding the archives"`
	} `positional-args:"yes"`
}

// Execute extracts every archive in the directory, it honors the
// go-flags.Commander interface.
func (c *Batch) Execute(args []string) error {
	if err := c.setup(); err != nil {
		return err
	}
	opts, err := c.options()
	if err != nil {
		return err
	}
	opts = append(opts, afs.WithBatchWorkers(c.workers()))
	if c.Direct || c.config.DirectWrites {
		opts = append(opts, afs.WithDirectWrites(true))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := afs.ExtractBatch(ctx, c.Args.Dir, opts...)
	for _, res := range results {
		printResult(res)
	}
	if err != nil {
		return fmt.Errorf("batch extraction of %s: %w", c.Args.Dir, err)
	}
	return nil
}

func (c *Batch) workers() int {
	switch {
	case c.Workers > 0:
		return c.Workers
	case c.config.BatchWorkers > 0:
		return c.config.BatchWorkers
	default:
		return runtime.NumCPU()
	}
}
