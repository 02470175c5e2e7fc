package command

import (
	"fmt"
	"text/tabwriter"

	"github.com/meigma/afs"
)

const (
	ListDescription = "List the files contained in an archive"
	ListHelp        = ListDescription
)

// List represents the `list` command of the afs cli tool.
type List struct {
	Common

	Args struct {
		Archive string `positional-arg-name:"ARCHIVE" required:"true" description:"archive path or URL"`
	} `positional-args:"yes"`
}

// Execute prints one line per file, it honors the go-flags.Commander
// interface.
func (c *List) Execute(args []string) error {
	if err := c.setup(); err != nil {
		return err
	}
	opts, err := c.options()
	if err != nil {
		return err
	}

	var a *afs.Archive
	if isURL(c.Args.Archive) {
		a, err = afs.OpenURL(c.Args.Archive, opts...)
	} else {
		var rc *afs.ReadCloser
		rc, err = afs.Open(c.Args.Archive, opts...)
		if err == nil {
			defer rc.Close()
			a = rc.Archive
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(defaultOutput, "%s: %s, %d files, attribute table at %d (%d bytes)\n",
		c.Args.Archive, a.Endianness(), a.Len(), a.AttributeTable().Offset, a.AttributeTable().Size)

	w := tabwriter.NewWriter(defaultOutput, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "index\toffset\tsize\tdate\tname\t")
	for i, name := range a.FileNames() {
		tok := a.Token(i)
		date := "-"
		if tok.Timestamp != nil {
			date = tok.Timestamp.String()
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t\n", i, tok.Offset, tok.Size, date, name)
	}
	return w.Flush()
}
