package sqlite

const schema = `
-- Mirror of the hosted course tables, used for offline seeding and tests.
CREATE TABLE IF NOT EXISTS language_courses (
    id TEXT PRIMARY KEY,
    language_code TEXT NOT NULL,
    language_name TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- lesson_number is not unique: re-running a plain seed adds duplicates.
CREATE TABLE IF NOT EXISTS lessons (
    id TEXT PRIMARY KEY,
    course_id TEXT NOT NULL,
    lesson_number INTEGER NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    difficulty TEXT CHECK (difficulty IN ('easy', 'medium', 'hard')),
    xp_reward INTEGER NOT NULL DEFAULT 0,
    content TEXT NOT NULL,
    is_published INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,

    FOREIGN KEY(course_id) REFERENCES language_courses(id)
);

CREATE INDEX IF NOT EXISTS lessons_course_number ON lessons (course_id, lesson_number);

CREATE TABLE IF NOT EXISTS user_lesson_progress (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    lesson_id TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    score INTEGER,
    completed_at DATETIME,

    FOREIGN KEY(lesson_id) REFERENCES lessons(id)
);
`
