package store

import "database/sql"

// Migrate applies the schema. Idempotent; runs at startup.
//
// Deleting a user cascades to its profile; deleting a student or course
// cascades to enrollments, attendance and feedback, so no dangling
// references survive a delete. The unique index on attendance
// (student_id, course_id, date) is the authoritative one-mark-per-day
// rule; clients treat their own duplicate check as a UX shortcut only.
func Migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT UNIQUE NOT NULL,
		email         TEXT NOT NULL,
		role          TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS refresh_tokens (
		jti        TEXT PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS students (
		id      BIGSERIAL PRIMARY KEY,
		user_id BIGINT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name    TEXT NOT NULL,
		dept    TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS teachers (
		id      BIGSERIAL PRIMARY KEY,
		user_id BIGINT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name    TEXT NOT NULL,
		dept    TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS courses (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		teacher_id BIGINT NOT NULL REFERENCES teachers(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		course_id  BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		PRIMARY KEY (course_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id         BIGSERIAL PRIMARY KEY,
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		course_id  BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		date       DATE NOT NULL,
		status     TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_unique
		ON attendance_records(student_id, course_id, date);
	CREATE INDEX IF NOT EXISTS idx_attendance_course ON attendance_records(course_id);
	CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance_records(student_id);

	CREATE TABLE IF NOT EXISTS feedback (
		id         BIGSERIAL PRIMARY KEY,
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		course_id  BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		message    TEXT NOT NULL,
		hidden     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id         BIGSERIAL PRIMARY KEY,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		role       TEXT NOT NULL DEFAULT 'all',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	_, err := db.Exec(schema)
	return err
}
