package command

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/meigma/afs"
)

const (
	ExtractDescription = "Extract every file of an archive"
	ExtractHelp        = ExtractDescription + "\n\n" +
		"Files are written to a new directory named after the archive without\n" +
		"its extension, or to --output. The directory must not exist.\n" +
		"ARCHIVE may be an http(s) URL served with range request support."
)

// Extract represents the `extract` command of the afs cli tool.
type Extract struct {
	Common

	Output   string `short:"o" long:"output" description:"Directory to extract into"`
	ListFile string `short:"l" long:"list-file" description:"Write name, size and digest of every file to this path"`
	Direct   bool   `long:"direct" description:"Write files in place instead of through temporary files"`
	Args     struct {
		Archive string `positional-arg-name:"ARCHIVE" required:"true" description:"archive path or URL"`
	} `positional-args:"yes"`
}

// Execute extracts the archive, it honors the go-flags.Commander interface.
func (c *Extract) Execute(args []string) error {
	if err := c.setup(); err != nil {
		return err
	}
	opts, err := c.options()
	if err != nil {
		return err
	}
	if c.Direct || c.config.DirectWrites {
		opts = append(opts, afs.WithDirectWrites(true))
	}
	if c.ListFile != "" {
		opts = append(opts, afs.WithListFile(c.ListFile))
	}

	var res *afs.ExtractResult
	if isURL(c.Args.Archive) {
		res, err = c.extractURL(opts)
	} else {
		if c.Output != "" {
			opts = append(opts, afs.WithDestination(c.Output))
		}
		res, err = afs.Extract(c.Args.Archive, opts...)
	}
	if err != nil {
		c.logger.WithError(err).WithField("archive", c.Args.Archive).Error("extraction failed")
		return err
	}

	printResult(res)
	return nil
}

func (c *Extract) extractURL(opts []afs.Option) (*afs.ExtractResult, error) {
	u, err := url.Parse(c.Args.Archive)
	if err != nil {
		return nil, err
	}
	dest := c.Output
	if dest == "" {
		dest = afs.DefaultDestination(path.Base(u.Path))
	}
	if dest == "" || dest == "." || dest == "/" {
		return nil, fmt.Errorf("cannot derive a destination from %s, use --output", c.Args.Archive)
	}

	a, err := afs.OpenURL(c.Args.Archive, opts...)
	if err != nil {
		return nil, err
	}
	return a.ExtractTo(dest)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func printResult(res *afs.ExtractResult) {
	fmt.Fprintf(defaultOutput, "%s: %d files extracted to %s\n",
		res.Archive, len(res.Files), res.Destination)
	if res.InvalidTimestamps > 0 {
		fmt.Fprintf(defaultOutput, "%s: %d files kept their current time (invalid stored date)\n",
			res.Archive, res.InvalidTimestamps)
	}
}
