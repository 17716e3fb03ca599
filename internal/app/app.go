// Package app wires configuration to stores and lesson sources for the
// command binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/conorfennell/lessonseed/internal/config"
	"github.com/conorfennell/lessonseed/internal/gitsource"
	"github.com/conorfennell/lessonseed/internal/lessons"
	"github.com/conorfennell/lessonseed/internal/storage"
	"github.com/conorfennell/lessonseed/internal/storage/postgres"
	"github.com/conorfennell/lessonseed/internal/storage/rest"
	"github.com/conorfennell/lessonseed/internal/storage/sqlite"
)

// OpenStore opens the backend selected by cfg.Store.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	tables := cfg.Tables.Tables()
	switch cfg.Store.Driver {
	case config.DriverREST:
		client, err := rest.New(cfg.Store.URL, cfg.Store.APIKey(), tables, rest.WithTimeout(cfg.Store.Timeout))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.DriverPostgres:
		repo, err := postgres.Connect(ctx, cfg.Store.DatabaseURL, tables)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Store.SQLitePath, tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// LoadCatalog returns the validated lesson catalog: the built-in one, a
// local file, or a file inside a git checkout.
func LoadCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (lessons.Catalog, error) {
	var (
		catalog lessons.Catalog
		err     error
	)

	switch {
	case cfg.Lessons.GitURL != "":
		if cfg.Lessons.File == "" {
			return nil, fmt.Errorf("a lesson file inside %s is required", cfg.Lessons.GitURL)
		}
		logger.Info("Syncing lesson repository", "url", cfg.Lessons.GitURL, "dir", cfg.Lessons.GitDir)
		path, cerr := gitsource.Checkout(ctx, cfg.Lessons.GitDir, cfg.Lessons.GitURL, cfg.Lessons.File)
		if cerr != nil {
			return nil, cerr
		}
		catalog, err = lessons.Load(path)
	case cfg.Lessons.File != "":
		catalog, err = lessons.Load(cfg.Lessons.File)
	default:
		catalog, err = lessons.Default()
	}
	if err != nil {
		return nil, err
	}

	if err := lessons.Validate(catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

type courseCreator interface {
	FindCourseID(ctx context.Context, languageCode string) (string, error)
	InsertCourse(ctx context.Context, languageCode, languageName string) (string, error)
}

// ErrCoursesUnsupported is returned by EnsureCourses for stores that only
// read courses.
var ErrCoursesUnsupported = errors.New("store cannot create courses")

// EnsureCourses creates the missing courses for langs. Only the local
// sqlite mirror supports it; hosted stores own their courses.
func EnsureCourses(ctx context.Context, store storage.Store, langs []lessons.Language, logger *slog.Logger) error {
	cc, ok := store.(courseCreator)
	if !ok {
		return ErrCoursesUnsupported
	}
	for _, lang := range langs {
		id, err := cc.FindCourseID(ctx, lang.Code)
		if err != nil {
			return err
		}
		if id != "" {
			continue
		}
		id, err = cc.InsertCourse(ctx, lang.Code, lang.Name)
		if err != nil {
			return err
		}
		logger.Info("Created local course", "language", lang.Code, "course_id", id)
	}
	return nil
}
