// Command seedlessons inserts the lesson catalog into the lessons table,
// one course per language.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/conorfennell/lessonseed/internal/app"
	"github.com/conorfennell/lessonseed/internal/config"
	"github.com/conorfennell/lessonseed/internal/lessons"
	"github.com/conorfennell/lessonseed/internal/logging"
	"github.com/conorfennell/lessonseed/internal/seed"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("seedlessons", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	config.RegisterSeedFlags(flags)
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

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.Timeout)
	defer cancel()

	catalog, err := app.LoadCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	languages, err := lessons.Languages(catalog, cfg.Lessons.Languages)
	if err != nil {
		return err
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Seed.CreateCourses {
		if err := app.EnsureCourses(ctx, store, languages, logger); err != nil {
			return err
		}
	}

	seeder := seed.New(store, seed.WithLogger(logger), seed.WithUpsert(cfg.Seed.Upsert))
	report := seeder.SeedAll(ctx, catalog, languages)

	for _, r := range report.Results {
		if r.Err != nil {
			fmt.Printf("%-10s skipped: %v\n", r.Language.Name, r.Err)
			continue
		}
		fmt.Printf("%-10s inserted %d, updated %d, failed %d", r.Language.Name, r.Inserted, r.Updated, r.Failed)
		if r.Stopped != nil {
			fmt.Printf(" (stopped: %v)", r.Stopped)
		}
		fmt.Println()
	}
	fmt.Printf("Done: %d lessons written, %d failed, %d languages skipped, %d stopped early.\n",
		report.Written(), report.Failed(), len(report.Skipped()), len(report.Stopped()))
	return nil
}
