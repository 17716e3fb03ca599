package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/lessonseed/internal/domain"
	"github.com/conorfennell/lessonseed/internal/storage"
)

// DB is a storage.Store backed by a local SQLite file.
type DB struct {
	conn   *sql.DB
	tables storage.Tables
}

var _ storage.Store = (*DB)(nil)

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string, tables storage.Tables) (*DB, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to exec %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db, tables: tables}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// InsertCourse adds a course and returns its generated ID.
func (db *DB) InsertCourse(ctx context.Context, languageCode, languageName string) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, language_code, language_name)
		VALUES (?, ?, ?)
	`, db.tables.Courses), id, languageCode, languageName)
	if err != nil {
		return "", fmt.Errorf("failed to insert course %s: %w", languageCode, err)
	}
	return id, nil
}

// FindCourseID returns the first course registered for the language code.
func (db *DB) FindCourseID(ctx context.Context, languageCode string) (string, error) {
	var id string
	err := db.conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id FROM %s WHERE language_code = ? ORDER BY rowid LIMIT 1
	`, db.tables.Courses), languageCode).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil // Course not found
		}
		return "", fmt.Errorf("failed to find course by language code %s: %w", languageCode, err)
	}
	return id, nil
}

// FindLessonID returns the first lesson at lessonNumber in the course.
func (db *DB) FindLessonID(ctx context.Context, courseID string, lessonNumber int) (string, error) {
	var id string
	err := db.conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id FROM %s WHERE course_id = ? AND lesson_number = ? ORDER BY rowid LIMIT 1
	`, db.tables.Lessons), courseID, lessonNumber).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find lesson %d of course %s: %w", lessonNumber, courseID, err)
	}
	return id, nil
}

// InsertLesson inserts a new lesson row under a generated ID.
func (db *DB) InsertLesson(ctx context.Context, l domain.Lesson) error {
	_, err := db.conn.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, course_id, lesson_number, title, description, difficulty, xp_reward, content, is_published)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, db.tables.Lessons),
		uuid.NewString(),
		l.CourseID,
		l.LessonNumber,
		l.Title,
		l.Description,
		string(l.Difficulty),
		l.XPReward,
		l.Content,
		l.IsPublished,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lesson %d: %w", l.LessonNumber, err)
	}
	return nil
}

// UpdateLesson overwrites every column of an existing lesson.
func (db *DB) UpdateLesson(ctx context.Context, id string, l domain.Lesson) error {
	_, err := db.conn.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET course_id = ?, lesson_number = ?, title = ?, description = ?, difficulty = ?,
		    xp_reward = ?, content = ?, is_published = ?
		WHERE id = ?
	`, db.tables.Lessons),
		l.CourseID,
		l.LessonNumber,
		l.Title,
		l.Description,
		string(l.Difficulty),
		l.XPReward,
		l.Content,
		l.IsPublished,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update lesson %s: %w", id, err)
	}
	return nil
}

// ListLessons returns a course's lessons ordered by lesson number.
func (db *DB) ListLessons(ctx context.Context, courseID string) ([]domain.Lesson, error) {
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT course_id, lesson_number, title, description, difficulty, xp_reward, content, is_published
		FROM %s WHERE course_id = ?
		ORDER BY lesson_number, rowid
	`, db.tables.Lessons), courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons for course %s: %w", courseID, err)
	}
	defer rows.Close()

	var lessons []domain.Lesson
	for rows.Next() {
		var (
			l           domain.Lesson
			description sql.NullString
			difficulty  sql.NullString
		)
		if err := rows.Scan(
			&l.CourseID,
			&l.LessonNumber,
			&l.Title,
			&description,
			&difficulty,
			&l.XPReward,
			&l.Content,
			&l.IsPublished,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lesson row for course %s: %w", courseID, err)
		}
		l.Description = description.String
		l.Difficulty = domain.Difficulty(difficulty.String)
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// CountRows returns the number of rows in table.
func (db *DB) CountRows(ctx context.Context, table string) (int64, error) {
	if err := storage.ValidateTable(table); err != nil {
		return 0, err
	}
	var n int64
	if err := db.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}

// DeleteAll removes every row whose id is not the nil UUID, which is all of them.
func (db *DB) DeleteAll(ctx context.Context, table string) (int64, error) {
	if err := storage.ValidateTable(table); err != nil {
		return 0, err
	}
	res, err := db.conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id <> ?`, table), storage.NilID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rows from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted row count for %s: %w", table, err)
	}
	return n, nil
}
