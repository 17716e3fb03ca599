package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/conorfennell/lessonseed/internal/domain"
)

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("invalid table name")

// NilID is the id no real row carries. Deleting every row whose id differs
// from it clears a table through APIs that refuse unfiltered deletes.
var NilID = uuid.Nil.String()

// Store is the table API the seeding and clearing commands run against.
// Lookups return "" with a nil error when nothing matches.
type Store interface {
	// FindCourseID returns the id of the first course with the language code.
	FindCourseID(ctx context.Context, languageCode string) (string, error)
	// FindLessonID returns the id of the lesson at lessonNumber in a course.
	FindLessonID(ctx context.Context, courseID string, lessonNumber int) (string, error)
	InsertLesson(ctx context.Context, lesson domain.Lesson) error
	UpdateLesson(ctx context.Context, id string, lesson domain.Lesson) error
	CountRows(ctx context.Context, table string) (int64, error)
	// DeleteAll removes every row of table and reports how many went, or -1
	// when the backend does not say.
	DeleteAll(ctx context.Context, table string) (int64, error)
	Close() error
}

// Tables names the tables a store reads and writes.
type Tables struct {
	Courses string
	Lessons string
}

// DefaultTables are the table names of the hosted schema.
func DefaultTables() Tables {
	return Tables{Courses: "language_courses", Lessons: "lessons"}
}

// Validate checks that both table names are usable identifiers.
func (t Tables) Validate() error {
	if err := ValidateTable(t.Courses); err != nil {
		return err
	}
	return ValidateTable(t.Lessons)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTable rejects anything but a plain SQL identifier.
func ValidateTable(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}
