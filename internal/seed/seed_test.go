package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lessonseed/internal/domain"
	"github.com/conorfennell/lessonseed/internal/lessons"
	"github.com/conorfennell/lessonseed/internal/storage"
	"github.com/conorfennell/lessonseed/internal/storage/sqlite"
)

// recordingStore keeps inserted lessons in memory and can fail chosen lessons.
type recordingStore struct {
	courses   map[string]string
	lookupErr error
	failOn    map[int]bool
	inserted  []domain.Lesson
	updated   map[string]domain.Lesson
	lookups   []string
}

func newRecordingStore(courses map[string]string) *recordingStore {
	return &recordingStore{courses: courses, failOn: map[int]bool{}, updated: map[string]domain.Lesson{}}
}

func (r *recordingStore) FindCourseID(_ context.Context, code string) (string, error) {
	r.lookups = append(r.lookups, code)
	if r.lookupErr != nil {
		return "", r.lookupErr
	}
	return r.courses[code], nil
}

func (r *recordingStore) FindLessonID(_ context.Context, courseID string, n int) (string, error) {
	for _, l := range r.inserted {
		if l.CourseID == courseID && l.LessonNumber == n {
			return courseID + "#" + string(rune('0'+n)), nil
		}
	}
	return "", nil
}

func (r *recordingStore) InsertLesson(_ context.Context, l domain.Lesson) error {
	if r.failOn[l.LessonNumber] {
		return errors.New("insert rejected")
	}
	r.inserted = append(r.inserted, l)
	return nil
}

func (r *recordingStore) UpdateLesson(_ context.Context, id string, l domain.Lesson) error {
	r.updated[id] = l
	return nil
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func defs(titles ...string) []domain.LessonDefinition {
	out := make([]domain.LessonDefinition, 0, len(titles))
	for _, title := range titles {
		out = append(out, domain.LessonDefinition{
			Title:      title,
			Difficulty: domain.Easy,
			XPReward:   10,
			Content:    map[string]any{"vocabulary": []any{title}},
		})
	}
	return out
}

var spanish = lessons.Language{Code: "es", Name: "Spanish"}

func TestSeedLanguageNumbersLessonsInOrder(t *testing.T) {
	store := newRecordingStore(map[string]string{"es": "course-es"})
	s := New(store, WithLogger(testLogger(&bytes.Buffer{})))

	res, err := s.SeedLanguage(context.Background(), spanish, defs("Greetings", "Numbers", "Colors"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, "course-es", res.CourseID)

	require.Len(t, store.inserted, 3)
	for i, l := range store.inserted {
		assert.Equal(t, i+1, l.LessonNumber)
		assert.Equal(t, "course-es", l.CourseID)
		assert.True(t, l.IsPublished)
	}
	assert.Equal(t, "Numbers", store.inserted[1].Title)
}

func TestSeedLanguageEmbedsActivities(t *testing.T) {
	store := newRecordingStore(map[string]string{"es": "course-es"})
	s := New(store, WithLogger(testLogger(&bytes.Buffer{})))

	base := map[string]any{"vocabulary": []any{"Hola"}, "phrases": []any{"Mucho gusto"}}
	activities := []domain.Activity{{
		Type:          domain.MultipleChoice,
		Order:         1,
		Question:      "Hello?",
		Options:       []string{"Hola", "Adiós"},
		CorrectAnswer: "Hola",
		Explanation:   "Hola is hello",
	}}
	def := domain.LessonDefinition{Title: "Greetings", Difficulty: domain.Easy, Content: base, Activities: activities}

	_, err := s.SeedLanguage(context.Background(), spanish, []domain.LessonDefinition{def, def})
	require.NoError(t, err)

	_, mutated := base["activities"]
	assert.False(t, mutated, "definition content must not be modified")

	var payload struct {
		Vocabulary []string          `json:"vocabulary"`
		Phrases    []string          `json:"phrases"`
		Activities []domain.Activity `json:"activities"`
	}
	require.NoError(t, json.Unmarshal([]byte(store.inserted[1].Content), &payload))
	assert.Equal(t, []string{"Hola"}, payload.Vocabulary)
	assert.Equal(t, []string{"Mucho gusto"}, payload.Phrases)
	require.Len(t, payload.Activities, 1)
	assert.Equal(t, activities[0].Options, payload.Activities[0].Options)
	assert.Equal(t, "Hola", payload.Activities[0].CorrectAnswer)
}

func TestSeedLanguageContinuesAfterFailure(t *testing.T) {
	store := newRecordingStore(map[string]string{"es": "course-es"})
	store.failOn[2] = true
	var logs bytes.Buffer
	s := New(store, WithLogger(testLogger(&logs)))

	res, err := s.SeedLanguage(context.Background(), spanish, defs("A", "B", "C"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Failed)

	require.Len(t, store.inserted, 2)
	assert.Equal(t, 1, store.inserted[0].LessonNumber)
	assert.Equal(t, 3, store.inserted[1].LessonNumber)
	assert.Contains(t, logs.String(), "Error creating lesson")
	assert.Contains(t, logs.String(), "lesson_number=2")
}

func TestSeedLanguageCourseNotFound(t *testing.T) {
	store := newRecordingStore(map[string]string{})
	s := New(store, WithLogger(testLogger(&bytes.Buffer{})))

	_, err := s.SeedLanguage(context.Background(), spanish, defs("A"))
	assert.ErrorIs(t, err, ErrCourseNotFound)
	assert.Empty(t, store.inserted)
}

func TestSeedLanguageLookupError(t *testing.T) {
	store := newRecordingStore(map[string]string{"es": "course-es"})
	store.lookupErr = errors.New("permission denied")
	s := New(store, WithLogger(testLogger(&bytes.Buffer{})))

	_, err := s.SeedLanguage(context.Background(), spanish, defs("A"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCourseNotFound)
	assert.Empty(t, store.inserted)
}

func TestSeedLanguageStopsOnCanceledContext(t *testing.T) {
	store := newRecordingStore(map[string]string{"es": "course-es"})
	s := New(store, WithLogger(testLogger(&bytes.Buffer{})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.SeedLanguage(ctx, spanish, defs("A", "B"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, res.Failed)
	assert.Empty(t, store.inserted)
}

// cancelingStore ends the run once the given number of lessons is inserted.
type cancelingStore struct {
	*recordingStore
	after  int
	cancel context.CancelFunc
}

func (c *cancelingStore) InsertLesson(ctx context.Context, l domain.Lesson) error {
	if err := c.recordingStore.InsertLesson(ctx, l); err != nil {
		return err
	}
	if len(c.inserted) == c.after {
		c.cancel()
	}
	return nil
}

func TestSeedAllReportsLanguageStoppedPartway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &cancelingStore{
		recordingStore: newRecordingStore(map[string]string{"es": "course-es"}),
		after:          1,
		cancel:         cancel,
	}
	var logs bytes.Buffer
	s := New(store, WithLogger(testLogger(&logs)))

	catalog := lessons.Catalog{"es": defs("A", "B", "C")}
	report := s.SeedAll(ctx, catalog, []lessons.Language{spanish})

	require.Len(t, store.inserted, 1)
	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.Failed)
	assert.NoError(t, res.Err)
	assert.ErrorIs(t, res.Stopped, context.Canceled)

	assert.Empty(t, report.Skipped(), "a language with written lessons is not skipped")
	assert.Equal(t, []lessons.Language{spanish}, report.Stopped())
	assert.Equal(t, 1, report.Written())
	assert.Contains(t, logs.String(), "Seeding stopped")
	assert.NotContains(t, logs.String(), "Skipping language")
}

func TestSeedAllSkipsMissingCourses(t *testing.T) {
	store := newRecordingStore(map[string]string{"es": "course-es", "zh": "course-zh"})
	var logs bytes.Buffer
	s := New(store, WithLogger(testLogger(&logs)))

	catalog := lessons.Catalog{
		"es": defs("A", "B"),
		"de": defs("C", "D", "E"),
		"zh": defs("F"),
	}
	languages, err := lessons.Languages(catalog, nil)
	require.NoError(t, err)

	report := s.SeedAll(context.Background(), catalog, languages)

	assert.Equal(t, []string{"es", "de", "zh"}, store.lookups)
	assert.Equal(t, 3, report.Written())
	assert.Zero(t, report.Failed())
	require.Len(t, report.Skipped(), 1)
	assert.Equal(t, "de", report.Skipped()[0].Code)
	assert.ErrorIs(t, report.Results[1].Err, ErrCourseNotFound)
	assert.Empty(t, report.Stopped())
	assert.Contains(t, logs.String(), "Skipping language")

	for _, l := range store.inserted {
		assert.NotEqual(t, "", l.CourseID)
	}
}

func TestUpsertUpdatesExistingLessons(t *testing.T) {
	store := newRecordingStore(map[string]string{"es": "course-es"})
	ctx := context.Background()

	_, err := New(store, WithLogger(testLogger(&bytes.Buffer{}))).SeedLanguage(ctx, spanish, defs("A", "B"))
	require.NoError(t, err)

	res, err := New(store, WithUpsert(true), WithLogger(testLogger(&bytes.Buffer{}))).
		SeedLanguage(ctx, spanish, defs("A2", "B2", "C2"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Inserted)
	assert.Len(t, store.inserted, 3)
	assert.Equal(t, "B2", store.updated["course-es#2"].Title)
}

func TestSeedAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(":memory:", storage.DefaultTables())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	catalog, err := lessons.Default()
	require.NoError(t, err)
	languages, err := lessons.Languages(catalog, nil)
	require.NoError(t, err)

	courseIDs := map[string]string{}
	for _, lang := range languages {
		id, err := db.InsertCourse(ctx, lang.Code, lang.Name)
		require.NoError(t, err)
		courseIDs[lang.Code] = id
	}

	s := New(db, WithLogger(testLogger(&bytes.Buffer{})))
	report := s.SeedAll(ctx, catalog, languages)
	assert.Equal(t, 30, report.Written())
	assert.Zero(t, report.Failed())

	for _, lang := range languages {
		stored, err := db.ListLessons(ctx, courseIDs[lang.Code])
		require.NoError(t, err)
		require.Len(t, stored, len(catalog[lang.Code]))
		for i, l := range stored {
			assert.Equal(t, i+1, l.LessonNumber)
			assert.Equal(t, catalog[lang.Code][i].Title, l.Title)
		}
	}

	t.Run("re-running without upsert duplicates rows", func(t *testing.T) {
		s.SeedAll(ctx, catalog, languages)
		n, err := db.CountRows(ctx, "lessons")
		require.NoError(t, err)
		assert.Equal(t, int64(60), n)
	})

	t.Run("re-running with upsert keeps the row count", func(t *testing.T) {
		report := New(db, WithUpsert(true), WithLogger(testLogger(&bytes.Buffer{}))).SeedAll(ctx, catalog, languages)
		assert.Equal(t, 30, report.Written())
		n, err := db.CountRows(ctx, "lessons")
		require.NoError(t, err)
		assert.Equal(t, int64(60), n)
	})
}
