package domain

// Difficulty is the tier a lesson is tagged with.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ActivityType distinguishes the exercise variants embedded in a lesson.
type ActivityType string

const (
	MultipleChoice ActivityType = "multiple_choice"
	Written        ActivityType = "written"
	Matching       ActivityType = "matching"
)

// Course is a language-learning track, keyed by its language code.
type Course struct {
	ID           string
	LanguageCode string
}

// Activity is an exercise stored inside a lesson's content payload.
// Which fields are set depends on Type:
// multiple_choice: Options + CorrectAnswer
// written: CorrectAnswer + optional Hint
// matching: Pairs
type Activity struct {
	Type          ActivityType        `json:"type" yaml:"type" validate:"required,oneof=multiple_choice written matching"`
	Order         int                 `json:"order" yaml:"order" validate:"gte=0"`
	Question      string              `json:"question" yaml:"question" validate:"required"`
	Options       []string            `json:"options,omitempty" yaml:"options,omitempty" validate:"required_if=Type multiple_choice"`
	CorrectAnswer any                 `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty" validate:"required_unless=Type matching"`
	Hint          string              `json:"hint,omitempty" yaml:"hint,omitempty"`
	Explanation   string              `json:"explanation" yaml:"explanation"`
	Pairs         []map[string]string `json:"pairs,omitempty" yaml:"pairs,omitempty" validate:"required_if=Type matching"`
}

// LessonDefinition is the source form of a lesson before it is attached
// to a course and numbered.
type LessonDefinition struct {
	Title       string         `json:"title" yaml:"title" validate:"required"`
	Description string         `json:"description" yaml:"description"`
	Difficulty  Difficulty     `json:"difficulty" yaml:"difficulty" validate:"required,oneof=easy medium hard"`
	Content     map[string]any `json:"content" yaml:"content"`
	XPReward    int            `json:"xp_reward" yaml:"xp_reward" validate:"gte=0"`
	Activities  []Activity     `json:"activities,omitempty" yaml:"activities,omitempty" validate:"dive"`
}

// Lesson is a row of the lessons table.
// Content holds the serialized payload, not the map.
type Lesson struct {
	CourseID     string     `json:"course_id"`
	LessonNumber int        `json:"lesson_number"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Difficulty   Difficulty `json:"difficulty"`
	XPReward     int        `json:"xp_reward"`
	Content      string     `json:"content"`
	IsPublished  bool       `json:"is_published"`
}
