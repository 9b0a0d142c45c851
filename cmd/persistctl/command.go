package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines one persistctl subcommand with unified help generation,
// the same shape as this module's teacher uses for its own CLI.
type Command struct {
	Flags *flag.FlagSet
	Usage string
	Short string
	Exec  func(ctx context.Context, out, errOut io.Writer, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// Run parses flags and executes the command, returning a process exit code.
func (c *Command) Run(ctx context.Context, out, errOut io.Writer, args []string) int {
	c.Flags.SetOutput(io.Discard)

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.printHelp(errOut)

			return 0
		}

		_, _ = fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	if err := c.Exec(ctx, out, errOut, c.Flags.Args()); err != nil {
		_, _ = fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	return 0
}

func (c *Command) printHelp(out io.Writer) {
	_, _ = fmt.Fprintln(out, "Usage: persistctl", c.Usage)
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, c.Short)

	if c.Flags.HasFlags() {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "Flags:")

		var buf strings.Builder

		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		_, _ = fmt.Fprint(out, buf.String())
	}
}
