package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conorfennell/lessonseed/internal/domain"
	"github.com/conorfennell/lessonseed/internal/storage"
)

// Repository is a storage.Store over a direct Postgres connection. Rows get
// their ids from the table defaults.
type Repository struct {
	pool    *pgxpool.Pool
	courses string
	lessons string
}

var _ storage.Store = (*Repository)(nil)

// Connect opens a pool for databaseURL and checks it is reachable.
func Connect(ctx context.Context, databaseURL string, tables storage.Tables) (*Repository, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewRepository(pool, tables), nil
}

// NewRepository constructs a Repository on an existing pool.
func NewRepository(pool *pgxpool.Pool, tables storage.Tables) *Repository {
	return &Repository{
		pool:    pool,
		courses: pgx.Identifier{tables.Courses}.Sanitize(),
		lessons: pgx.Identifier{tables.Lessons}.Sanitize(),
	}
}

// Close releases the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// FindCourseID returns the id of the first course with the language code.
func (r *Repository) FindCourseID(ctx context.Context, languageCode string) (string, error) {
	query := fmt.Sprintf(`SELECT id::text FROM %s WHERE language_code = $1 LIMIT 1`, r.courses)

	var id string
	if err := r.pool.QueryRow(ctx, query, languageCode).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find course by language code %s: %w", languageCode, err)
	}
	return id, nil
}

// FindLessonID returns the id of the lesson at lessonNumber in a course.
func (r *Repository) FindLessonID(ctx context.Context, courseID string, lessonNumber int) (string, error) {
	query := fmt.Sprintf(`SELECT id::text FROM %s WHERE course_id::text = $1 AND lesson_number = $2 LIMIT 1`, r.lessons)

	var id string
	if err := r.pool.QueryRow(ctx, query, courseID, lessonNumber).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find lesson %d of course %s: %w", lessonNumber, courseID, err)
	}
	return id, nil
}

// InsertLesson creates one lesson row.
func (r *Repository) InsertLesson(ctx context.Context, l domain.Lesson) error {
	query := fmt.Sprintf(`INSERT INTO %s (course_id, lesson_number, title, description, difficulty, xp_reward, content, is_published)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, r.lessons)

	_, err := r.pool.Exec(ctx, query,
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

// UpdateLesson overwrites the lesson with the given id.
func (r *Repository) UpdateLesson(ctx context.Context, id string, l domain.Lesson) error {
	query := fmt.Sprintf(`UPDATE %s
        SET course_id=$1, lesson_number=$2, title=$3, description=$4, difficulty=$5, xp_reward=$6, content=$7, is_published=$8
        WHERE id::text = $9`, r.lessons)

	_, err := r.pool.Exec(ctx, query,
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

// CountRows returns the number of rows in table.
func (r *Repository) CountRows(ctx context.Context, table string) (int64, error) {
	if err := storage.ValidateTable(table); err != nil {
		return 0, err
	}
	var n int64
	query := fmt.Sprintf(`SELECT count(*) FROM %s`, pgx.Identifier{table}.Sanitize())
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}

// DeleteAll removes every row whose id is not the nil UUID.
func (r *Repository) DeleteAll(ctx context.Context, table string) (int64, error) {
	if err := storage.ValidateTable(table); err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id::text <> $1`, pgx.Identifier{table}.Sanitize())
	tag, err := r.pool.Exec(ctx, query, storage.NilID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rows from %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}
