// Command cleartable deletes every row of one table after asking for
// confirmation on standard input.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/conorfennell/lessonseed/internal/app"
	"github.com/conorfennell/lessonseed/internal/cleaner"
	"github.com/conorfennell/lessonseed/internal/config"
	"github.com/conorfennell/lessonseed/internal/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	flags := pflag.NewFlagSet("cleartable", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	config.RegisterClearFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	openCtx, cancelOpen := context.WithTimeout(context.Background(), cfg.Store.Timeout)
	defer cancelOpen()

	store, err := app.OpenStore(openCtx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	table := cfg.Clear.Table
	rows, err := store.CountRows(openCtx, table)
	if err != nil {
		logger.Warn("Could not count rows", "table", table, "error", err)
		rows = -1
	}

	ok, err := cleaner.Confirm(in, out, table, rows)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	// The prompt may wait indefinitely, so the delete gets a fresh deadline.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.Timeout)
	defer cancel()

	removed, err := cleaner.Clear(ctx, store, table, logger)
	if err != nil {
		return err
	}
	if removed < 0 {
		fmt.Fprintf(out, "Deleted all rows from %s.\n", table)
	} else {
		fmt.Fprintf(out, "Deleted %d rows from %s.\n", removed, table)
	}
	return nil
}
