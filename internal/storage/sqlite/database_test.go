package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lessonseed/internal/domain"
	"github.com/conorfennell/lessonseed/internal/storage"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", storage.DefaultTables())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func lesson(courseID string, n int) domain.Lesson {
	return domain.Lesson{
		CourseID:     courseID,
		LessonNumber: n,
		Title:        "Lesson",
		Description:  "desc",
		Difficulty:   domain.Easy,
		XPReward:     10,
		Content:      `{"vocabulary":["hola"]}`,
		IsPublished:  true,
	}
}

func TestFindCourseID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, err := db.FindCourseID(ctx, "es")
	require.NoError(t, err)
	assert.Empty(t, id, "missing course should return an empty id")

	first, err := db.InsertCourse(ctx, "es", "Spanish")
	require.NoError(t, err)
	_, err = db.InsertCourse(ctx, "es", "Spanish (duplicate)")
	require.NoError(t, err)

	id, err = db.FindCourseID(ctx, "es")
	require.NoError(t, err)
	assert.Equal(t, first, id, "first matching course wins")
}

func TestInsertAndUpdateLesson(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	courseID, err := db.InsertCourse(ctx, "de", "German")
	require.NoError(t, err)

	require.NoError(t, db.InsertLesson(ctx, lesson(courseID, 1)))
	require.NoError(t, db.InsertLesson(ctx, lesson(courseID, 2)))

	id, err := db.FindLessonID(ctx, courseID, 2)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	missing, err := db.FindLessonID(ctx, courseID, 3)
	require.NoError(t, err)
	assert.Empty(t, missing)

	updated := lesson(courseID, 2)
	updated.Title = "Numbers"
	updated.Difficulty = domain.Hard
	require.NoError(t, db.UpdateLesson(ctx, id, updated))

	lessons, err := db.ListLessons(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, 1, lessons[0].LessonNumber)
	assert.Equal(t, "Numbers", lessons[1].Title)
	assert.Equal(t, domain.Hard, lessons[1].Difficulty)
	assert.True(t, lessons[1].IsPublished)
	assert.Equal(t, `{"vocabulary":["hola"]}`, lessons[1].Content)
}

func TestInsertLessonRequiresCourse(t *testing.T) {
	db := openTestDB(t)
	err := db.InsertLesson(context.Background(), lesson("no-such-course", 1))
	assert.Error(t, err, "foreign key should reject an unknown course")
}

func TestInsertLessonRejectsUnknownDifficulty(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	courseID, err := db.InsertCourse(ctx, "zh", "Chinese")
	require.NoError(t, err)

	l := lesson(courseID, 1)
	l.Difficulty = "extreme"
	assert.Error(t, db.InsertLesson(ctx, l))
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()

	for _, k := range []int{0, 1, 7} {
		db := openTestDB(t)
		courseID, err := db.InsertCourse(ctx, "es", "Spanish")
		require.NoError(t, err)
		for i := 1; i <= k; i++ {
			require.NoError(t, db.InsertLesson(ctx, lesson(courseID, i)))
		}

		before, err := db.CountRows(ctx, "lessons")
		require.NoError(t, err)
		assert.Equal(t, int64(k), before)

		removed, err := db.DeleteAll(ctx, "lessons")
		require.NoError(t, err)
		assert.Equal(t, int64(k), removed)

		after, err := db.CountRows(ctx, "lessons")
		require.NoError(t, err)
		assert.Zero(t, after)
	}
}

func TestDeleteAllRejectsBadTable(t *testing.T) {
	db := openTestDB(t)
	_, err := db.DeleteAll(context.Background(), "lessons; DROP TABLE lessons")
	assert.True(t, errors.Is(err, storage.ErrInvalidTable))

	_, err = db.DeleteAll(context.Background(), "no_such_table")
	assert.Error(t, err)
}

func TestOpenRejectsBadTables(t *testing.T) {
	_, err := Open(":memory:", storage.Tables{Courses: "language courses", Lessons: "lessons"})
	assert.ErrorIs(t, err, storage.ErrInvalidTable)
}
