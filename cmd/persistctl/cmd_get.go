package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/calvinalkan/persist"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

// GetCmd returns the "get" command: prints the currently committed
// document, or "{}" if nothing has been committed yet.
func GetCmd(cfg Config) *Command {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "get",
		Short: "Print the currently committed document as JSON",
		Exec: func(ctx context.Context, out, _ io.Writer, _ []string) error {
			return execGet(ctx, out, cfg)
		},
	}
}

func execGet(ctx context.Context, out io.Writer, cfg Config) error {
	p := newPersister(cfg)
	defer func() { _ = p.Close() }()

	result, err := p.Load(ctx, nil)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	if result.IsError() {
		return fmt.Errorf("stored document is unreadable: %w", result.Err())
	}

	value, ok := result.Value()
	if !ok {
		value = document{}
	}

	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	_, err = fmt.Fprintln(out, string(encoded))

	return err
}

func newPersister(cfg Config) *persist.LockedFileDataPersister[document] {
	return persist.NewLockedFileDataPersister[document](
		cfg.Path, readDocument, writeDocument,
		persist.WithEqual[document](documentsEqual),
		persist.WithSettings[document](persist.FileDataPersisterSettings{
			NumRetries:    cfg.NumRetries,
			RetryDelay:    cfg.RetryDelay(),
			ExclusiveMode: cfg.Exclusive(),
			Logger:        zerolog.Nop(),
		}),
	)
}
