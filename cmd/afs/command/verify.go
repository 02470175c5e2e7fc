package command

import (
	"fmt"

	"github.com/meigma/afs/internal/listfile"
)

const (
	VerifyDescription = "Check extracted files against a list file"
	VerifyHelp        = VerifyDescription + "\n\n" +
		"LIST is a file written by `extract --list-file`. Every listed file\n" +
		"must exist below DIR with the recorded size and digest."
)

// Verify represents the `verify` command of the afs cli tool.
type Verify struct {
	Args struct {
		List string `positional-arg-name:"LIST" required:"true" description:"list file"`
		Dir  string `positional-arg-name:"DIR" required:"true" description:"extraction directory"`
	} `positional-args:"yes"`
}

// Execute verifies the directory, it honors the go-flags.Commander
// interface.
func (c *Verify) Execute(args []string) error {
	entries, err := listfile.ReadFile(c.Args.List)
	if err != nil {
		return err
	}
	if err := listfile.Verify(c.Args.Dir, entries); err != nil {
		return err
	}
	fmt.Fprintf(defaultOutput, "%s: %d files verified\n", c.Args.Dir, len(entries))
	return nil
}
