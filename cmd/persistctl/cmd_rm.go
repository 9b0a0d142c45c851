package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/calvinalkan/persist"
	flag "github.com/spf13/pflag"
)

var errRmUsage = errors.New("usage: persistctl rm <key>")

// RmCmd returns the "rm" command: deletes a key from the document. If the
// document becomes empty it is removed entirely via RemoveAndCommit.
func RmCmd(cfg Config) *Command {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "rm <key>",
		Short: "Remove a key from the committed document",
		Exec: func(ctx context.Context, out, _ io.Writer, args []string) error {
			if len(args) != 1 {
				return errRmUsage
			}

			return execRm(ctx, out, cfg, args[0])
		},
	}
}

func execRm(ctx context.Context, out io.Writer, cfg Config, key string) error {
	p := newPersister(cfg)
	defer func() { _ = p.Close() }()

	result, err := p.Update(ctx, nil, func(_ context.Context, tc *persist.TransactionContext[document]) error {
		current, ok := tc.Read().Value()
		if !ok {
			return nil // nothing to remove
		}

		if _, present := current[key]; !present {
			return nil
		}

		next := document{}
		for k, v := range current {
			if k == key {
				continue
			}

			next[k] = v
		}

		if len(next) == 0 {
			tc.RemoveAndCommit()

			return nil
		}

		tc.Commit(next)

		return nil
	})
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	_, err = fmt.Fprintf(out, "removed %s (updated=%t)\n", key, result.IsUpdated)

	return err
}
