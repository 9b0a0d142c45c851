// Command persistctl is a minimal demo CLI over a single
// [github.com/calvinalkan/persist] document: it shows the crash-safe
// single-value persister and its config layer wired together end to end.
// No decorators are used.
package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	globalFlags := flag.NewFlagSet("persistctl", flag.ContinueOnError)
	globalFlags.SetOutput(os.Stderr)

	configPath := globalFlags.StringP("config", "c", "persistctl.json", "path to a JSONC config file")

	if err := globalFlags.Parse(argv); err != nil {
		return 1
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)

		return 1
	}

	args := globalFlags.Args()
	if len(args) == 0 {
		printUsage(os.Stderr)

		return 1
	}

	commands := map[string]*Command{
		"get": GetCmd(cfg),
		"set": SetCmd(cfg),
		"rm":  RmCmd(cfg),
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n\n", args[0])
		printUsage(os.Stderr)

		return 1
	}

	return cmd.Run(context.Background(), os.Stdout, os.Stderr, args[1:])
}

func printUsage(out *os.File) {
	fmt.Fprintln(out, "Usage: persistctl [-c config.json] <get|set|rm> [flags]")
}
