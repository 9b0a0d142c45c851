package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/calvinalkan/persist"
	flag "github.com/spf13/pflag"
)

var errSetUsage = errors.New("usage: persistctl set <key> <value>")

// SetCmd returns the "set" command: commits key=value into the document,
// creating it if absent.
func SetCmd(cfg Config) *Command {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "set <key> <value>",
		Short: "Set a key in the committed document",
		Exec: func(ctx context.Context, out, _ io.Writer, args []string) error {
			if len(args) != 2 {
				return errSetUsage
			}

			return execSet(ctx, out, cfg, args[0], args[1])
		},
	}
}

func execSet(ctx context.Context, out io.Writer, cfg Config, key, value string) error {
	p := newPersister(cfg)
	defer func() { _ = p.Close() }()

	result, err := p.Update(ctx, nil, func(_ context.Context, tc *persist.TransactionContext[document]) error {
		current, ok := tc.Read().Value()
		if !ok {
			current = document{}
		}

		next := document{}
		for k, v := range current {
			next[k] = v
		}

		next[key] = value

		tc.Commit(next)

		return nil
	})
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	if result.Updated.IsError() {
		return fmt.Errorf("commit failed: %w", result.Updated.Err())
	}

	_, err = fmt.Fprintf(out, "%s=%s (updated=%t)\n", key, value, result.IsUpdated)

	return err
}
