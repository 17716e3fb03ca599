package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/conorfennell/lessonseed/internal/content"
	"github.com/conorfennell/lessonseed/internal/domain"
	"github.com/conorfennell/lessonseed/internal/lessons"
)

// ErrCourseNotFound is returned when no course has the language code.
var ErrCourseNotFound = errors.New("course not found")

// Store is the part of storage.Store the seeder writes through.
type Store interface {
	FindCourseID(ctx context.Context, languageCode string) (string, error)
	FindLessonID(ctx context.Context, courseID string, lessonNumber int) (string, error)
	InsertLesson(ctx context.Context, lesson domain.Lesson) error
	UpdateLesson(ctx context.Context, id string, lesson domain.Lesson) error
}

// Seeder writes catalog lessons into a store one row at a time.
type Seeder struct {
	store  Store
	logger *slog.Logger
	upsert bool
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Seeder) { s.logger = l }
}

// WithUpsert makes the seeder update the lesson already stored at the same
// course and lesson number instead of inserting a duplicate.
func WithUpsert(upsert bool) Option {
	return func(s *Seeder) { s.upsert = upsert }
}

// New returns a Seeder writing to store.
func New(store Store, opts ...Option) *Seeder {
	s := &Seeder{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result counts what happened to one language's lessons.
type Result struct {
	Language lessons.Language
	CourseID string
	Inserted int
	Updated  int
	Failed   int
	// Err is set when the language was skipped as a whole because its
	// course could not be resolved. Nothing was written.
	Err error
	// Stopped is set when the context ended partway through the language.
	// The counts still say what was written before that.
	Stopped error
}

// Report collects the per-language results of a run.
type Report struct {
	Results []Result
}

// Written is the number of lessons inserted or updated across all languages.
func (r Report) Written() int {
	n := 0
	for _, res := range r.Results {
		n += res.Inserted + res.Updated
	}
	return n
}

// Failed is the number of lessons that could not be written.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		n += res.Failed
	}
	return n
}

// Skipped lists the languages that were not seeded at all. Languages that
// stopped partway are not included; see Stopped.
func (r Report) Skipped() []lessons.Language {
	var out []lessons.Language
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Language)
		}
	}
	return out
}

// Stopped lists the languages whose seeding ended early, with some lessons
// possibly written.
func (r Report) Stopped() []lessons.Language {
	var out []lessons.Language
	for _, res := range r.Results {
		if res.Stopped != nil {
			out = append(out, res.Language)
		}
	}
	return out
}

// SeedAll seeds each language in order. A language whose course cannot be
// resolved is logged and skipped; the others still run.
func (s *Seeder) SeedAll(ctx context.Context, catalog lessons.Catalog, languages []lessons.Language) Report {
	var report Report
	for _, lang := range languages {
		s.logger.Info("Creating lessons", "language", lang.Name, "code", lang.Code, "count", len(catalog[lang.Code]))

		res, err := s.SeedLanguage(ctx, lang, catalog[lang.Code])
		switch {
		case err == nil:
		case res.CourseID != "":
			s.logger.Error("Seeding stopped",
				"language", lang.Name,
				"inserted", res.Inserted,
				"updated", res.Updated,
				"error", err,
			)
			res.Stopped = err
		default:
			s.logger.Error("Skipping language", "language", lang.Name, "error", err)
			res.Err = err
		}
		report.Results = append(report.Results, res)
	}
	return report
}

// SeedLanguage resolves the course for lang and writes defs as lessons
// 1..len(defs). A failed lesson is logged and counted, and the next one is
// still attempted. The returned error is set when the course lookup failed,
// in which case nothing was written, or when the context ended, in which case
// the result counts the lessons written before that.
func (s *Seeder) SeedLanguage(ctx context.Context, lang lessons.Language, defs []domain.LessonDefinition) (Result, error) {
	res := Result{Language: lang}

	courseID, err := s.store.FindCourseID(ctx, lang.Code)
	if err != nil {
		return res, fmt.Errorf("lookup course %s: %w", lang.Code, err)
	}
	if courseID == "" {
		return res, fmt.Errorf("%w for %s", ErrCourseNotFound, lang.Name)
	}
	res.CourseID = courseID

	for i, def := range defs {
		if err := ctx.Err(); err != nil {
			res.Failed += len(defs) - i
			return res, fmt.Errorf("seeding %s stopped at lesson %d: %w", lang.Name, i+1, err)
		}

		number := i + 1
		updated, err := s.writeLesson(ctx, courseID, number, def)
		if err != nil {
			res.Failed++
			s.logger.Error("Error creating lesson",
				"language", lang.Name,
				"lesson_number", number,
				"title", def.Title,
				"error", err,
			)
			continue
		}

		if updated {
			res.Updated++
			s.logger.Info("Updated lesson", "language", lang.Name, "lesson_number", number, "title", def.Title)
		} else {
			res.Inserted++
			s.logger.Info("Created lesson", "language", lang.Name, "lesson_number", number, "title", def.Title)
		}
	}
	return res, nil
}

// writeLesson stores one lesson and reports whether an existing row was updated.
func (s *Seeder) writeLesson(ctx context.Context, courseID string, number int, def domain.LessonDefinition) (bool, error) {
	payload, err := content.ForDefinition(def)
	if err != nil {
		return false, err
	}

	lesson := domain.Lesson{
		CourseID:     courseID,
		LessonNumber: number,
		Title:        def.Title,
		Description:  def.Description,
		Difficulty:   def.Difficulty,
		XPReward:     def.XPReward,
		Content:      payload,
		IsPublished:  true,
	}

	if s.upsert {
		existingID, err := s.store.FindLessonID(ctx, courseID, number)
		if err != nil {
			return false, err
		}
		if existingID != "" {
			return true, s.store.UpdateLesson(ctx, existingID, lesson)
		}
	}
	return false, s.store.InsertLesson(ctx, lesson)
}
