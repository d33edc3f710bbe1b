package school

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Repository is the Postgres-backed Store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

func isUniqueViolation(err error) bool {
	// pgx surfaces constraint violations with SQLSTATE 23505 in the message
	// when used through database/sql.
	return err != nil && strings.Contains(err.Error(), "23505")
}

// ---------- users & sessions ----------

func (r *Repository) createUserTx(ctx context.Context, tx *sql.Tx, u User) (User, error) {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO users (username, email, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, u.Username, u.Email, u.Role, u.PasswordHash)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return u, nil
}

// CreateUser inserts a standalone login user, used for admin accounts.
// Student and teacher logins are created with their profiles instead.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, u.Username, u.Email, u.Role, u.PasswordHash)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return u, nil
}

// UserByUsername returns a login user by username (the email).
func (r *Repository) UserByUsername(ctx context.Context, username string) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, role, password_hash, created_at
		FROM users WHERE username = $1
	`, username)
	return scanUser(row)
}

// UserByID returns a login user by id.
func (r *Repository) UserByID(ctx context.Context, id int64) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, role, password_hash, created_at
		FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// SetUserPassword replaces the stored password hash.
func (r *Repository) SetUserPassword(ctx context.Context, username, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2 WHERE username = $1`, username, passwordHash)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// SaveRefreshToken stores a refresh token id for rotation and revocation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, jti, userID, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, jti string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE jti = $1`, jti)
	return err
}

// RefreshTokenActive reports whether a token is known, unexpired and unrevoked.
func (r *Repository) RefreshTokenActive(ctx context.Context, jti string) (bool, error) {
	var active bool
	err := r.db.QueryRowContext(ctx, `
		SELECT NOT revoked AND expires_at > NOW()
		FROM refresh_tokens WHERE jti = $1
	`, jti).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return active, err
}

// ---------- students ----------

// CreateStudent writes the login user and the student profile in one transaction.
func (r *Repository) CreateStudent(ctx context.Context, s Student, u User) (Student, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Student{}, err
	}
	defer tx.Rollback()

	u, err = r.createUserTx(ctx, tx, u)
	if err != nil {
		return Student{}, err
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO students (user_id, name, dept) VALUES ($1, $2, $3) RETURNING id
	`, u.ID, s.Name, s.Dept)
	if err := row.Scan(&s.ID); err != nil {
		return Student{}, err
	}
	s.UserID = u.ID
	s.Email = u.Email
	return s, tx.Commit()
}

const studentCols = `s.id, s.user_id, s.name, s.dept, u.email`

func scanStudent(sc interface{ Scan(...any) error }) (Student, error) {
	var s Student
	if err := sc.Scan(&s.ID, &s.UserID, &s.Name, &s.Dept, &s.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	return s, nil
}

// Students lists every student.
func (r *Repository) Students(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentCols+` FROM students s JOIN users u ON u.id = s.user_id ORDER BY s.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StudentByID returns one student.
func (r *Repository) StudentByID(ctx context.Context, id int64) (Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx, `
		SELECT `+studentCols+` FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1
	`, id))
}

// StudentByUserID returns the student owning a login user.
func (r *Repository) StudentByUserID(ctx context.Context, userID int64) (Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx, `
		SELECT `+studentCols+` FROM students s JOIN users u ON u.id = s.user_id WHERE s.user_id = $1
	`, userID))
}

// UpdateStudent updates profile fields and, when the email changed, the login user.
func (r *Repository) UpdateStudent(ctx context.Context, s Student) (Student, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Student{}, err
	}
	defer tx.Rollback()

	var userID int64
	err = tx.QueryRowContext(ctx, `
		UPDATE students SET name = $2, dept = $3 WHERE id = $1 RETURNING user_id
	`, s.ID, s.Name, s.Dept).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, err
	}
	if s.Email != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET email = $2, username = $2 WHERE id = $1
		`, userID, s.Email); err != nil {
			if isUniqueViolation(err) {
				return Student{}, ErrDuplicateEmail
			}
			return Student{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Student{}, err
	}
	return r.StudentByID(ctx, s.ID)
}

// DeleteStudent removes the student's login user; the profile, enrollments,
// attendance and feedback go with it through cascades.
func (r *Repository) DeleteStudent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM users WHERE id = (SELECT user_id FROM students WHERE id = $1)
	`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// DeleteAllStudents removes every student login user.
func (r *Repository) DeleteAllStudents(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE role = 'student'`)
	return err
}

// ---------- teachers ----------

// CreateTeacher writes the login user and the teacher profile in one transaction.
func (r *Repository) CreateTeacher(ctx context.Context, t Teacher, u User) (Teacher, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Teacher{}, err
	}
	defer tx.Rollback()

	u, err = r.createUserTx(ctx, tx, u)
	if err != nil {
		return Teacher{}, err
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO teachers (user_id, name, dept) VALUES ($1, $2, $3) RETURNING id
	`, u.ID, t.Name, t.Dept)
	if err := row.Scan(&t.ID); err != nil {
		return Teacher{}, err
	}
	t.UserID = u.ID
	t.Email = u.Email
	return t, tx.Commit()
}

const teacherCols = `t.id, t.user_id, t.name, t.dept, u.email`

func scanTeacher(sc interface{ Scan(...any) error }) (Teacher, error) {
	var t Teacher
	if err := sc.Scan(&t.ID, &t.UserID, &t.Name, &t.Dept, &t.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Teacher{}, ErrNotFound
		}
		return Teacher{}, err
	}
	return t, nil
}

// Teachers lists every teacher.
func (r *Repository) Teachers(ctx context.Context) ([]Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+teacherCols+` FROM teachers t JOIN users u ON u.id = t.user_id ORDER BY t.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Teacher
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TeacherByID returns one teacher.
func (r *Repository) TeacherByID(ctx context.Context, id int64) (Teacher, error) {
	return scanTeacher(r.db.QueryRowContext(ctx, `
		SELECT `+teacherCols+` FROM teachers t JOIN users u ON u.id = t.user_id WHERE t.id = $1
	`, id))
}

// TeacherByUserID returns the teacher owning a login user.
func (r *Repository) TeacherByUserID(ctx context.Context, userID int64) (Teacher, error) {
	return scanTeacher(r.db.QueryRowContext(ctx, `
		SELECT `+teacherCols+` FROM teachers t JOIN users u ON u.id = t.user_id WHERE t.user_id = $1
	`, userID))
}

// UpdateTeacher mirrors UpdateStudent.
func (r *Repository) UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Teacher{}, err
	}
	defer tx.Rollback()

	var userID int64
	err = tx.QueryRowContext(ctx, `
		UPDATE teachers SET name = $2, dept = $3 WHERE id = $1 RETURNING user_id
	`, t.ID, t.Name, t.Dept).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, ErrNotFound
	}
	if err != nil {
		return Teacher{}, err
	}
	if t.Email != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET email = $2, username = $2 WHERE id = $1
		`, userID, t.Email); err != nil {
			if isUniqueViolation(err) {
				return Teacher{}, ErrDuplicateEmail
			}
			return Teacher{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Teacher{}, err
	}
	return r.TeacherByID(ctx, t.ID)
}

// DeleteTeacher removes the teacher's login user; courses cascade.
func (r *Repository) DeleteTeacher(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM users WHERE id = (SELECT user_id FROM teachers WHERE id = $1)
	`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// DeleteAllTeachers removes every teacher login user.
func (r *Repository) DeleteAllTeachers(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE role = 'teacher'`)
	return err
}

// DeleteAllProfiles wipes students and teachers in one transaction.
func (r *Repository) DeleteAllProfiles(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE role IN ('student', 'teacher')`)
	return err
}

// ---------- courses ----------

// CreateCourse writes a course and its initial enrollment set.
func (r *Repository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Course{}, err
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO courses (name, teacher_id) VALUES ($1, $2) RETURNING id
	`, c.Name, c.TeacherID).Scan(&c.ID); err != nil {
		return Course{}, err
	}
	for _, sid := range c.StudentIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO enrollments (course_id, student_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, c.ID, sid); err != nil {
			return Course{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Course{}, err
	}
	return r.CourseByID(ctx, c.ID)
}

func (r *Repository) listCourses(ctx context.Context, where string, args ...any) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, teacher_id FROM courses `+where+` ORDER BY id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Name, &c.TeacherID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].StudentIDs, err = r.enrolledIDs(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repository) enrolledIDs(ctx context.Context, courseID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id FROM enrollments WHERE course_id = $1 ORDER BY student_id
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Courses lists every course with its enrollment set.
func (r *Repository) Courses(ctx context.Context) ([]Course, error) {
	return r.listCourses(ctx, ``)
}

// CoursesByTeacher lists a teacher's courses.
func (r *Repository) CoursesByTeacher(ctx context.Context, teacherID int64) ([]Course, error) {
	return r.listCourses(ctx, `WHERE teacher_id = $1`, teacherID)
}

// CoursesByStudent lists the courses a student is enrolled in.
func (r *Repository) CoursesByStudent(ctx context.Context, studentID int64) ([]Course, error) {
	return r.listCourses(ctx, `
		WHERE id IN (SELECT course_id FROM enrollments WHERE student_id = $1)`, studentID)
}

// CourseByID returns one course.
func (r *Repository) CourseByID(ctx context.Context, id int64) (Course, error) {
	var c Course
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, teacher_id FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.TeacherID)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, ErrNotFound
	}
	if err != nil {
		return Course{}, err
	}
	c.StudentIDs, err = r.enrolledIDs(ctx, id)
	return c, err
}

// UpdateCourse replaces name, teacher and the whole enrollment set.
func (r *Repository) UpdateCourse(ctx context.Context, c Course) (Course, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Course{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE courses SET name = $2, teacher_id = $3 WHERE id = $1
	`, c.ID, c.Name, c.TeacherID)
	if err != nil {
		return Course{}, err
	}
	if err := rowsAffected(res); err != nil {
		return Course{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM enrollments WHERE course_id = $1`, c.ID); err != nil {
		return Course{}, err
	}
	for _, sid := range c.StudentIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO enrollments (course_id, student_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, c.ID, sid); err != nil {
			return Course{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Course{}, err
	}
	return r.CourseByID(ctx, c.ID)
}

// DeleteCourse removes a course; enrollments and attendance cascade.
func (r *Repository) DeleteCourse(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// DeleteAllCourses removes every course.
func (r *Repository) DeleteAllCourses(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM courses`)
	return err
}

// Enroll adds a student to a course's set; re-enrolling is a no-op.
func (r *Repository) Enroll(ctx context.Context, courseID, studentID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO enrollments (course_id, student_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, courseID, studentID)
	return err
}

// ---------- attendance ----------

const recordCols = `a.id, a.student_id, s.name, a.course_id, to_char(a.date, 'YYYY-MM-DD'), a.status`

func scanRecord(sc interface{ Scan(...any) error }) (AttendanceRecord, error) {
	var rec AttendanceRecord
	if err := sc.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &rec.CourseID, &rec.Date, &rec.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AttendanceRecord{}, ErrNotFound
		}
		return AttendanceRecord{}, err
	}
	return rec, nil
}

// UpsertRecord inserts a mark, or overwrites the status of the existing
// record for the same (student, course, date) key.
func (r *Repository) UpsertRecord(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, bool, error) {
	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (student_id, course_id, date, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, course_id, date)
			DO UPDATE SET status = EXCLUDED.status
		RETURNING id, (xmax = 0)
	`, rec.StudentID, rec.CourseID, rec.Date, rec.Status).Scan(&rec.ID, &created)
	if err != nil {
		return AttendanceRecord{}, false, err
	}
	out, err := r.RecordByID(ctx, rec.ID)
	return out, created, err
}

// RecordByID returns one record with the student name joined in.
func (r *Repository) RecordByID(ctx context.Context, id int64) (AttendanceRecord, error) {
	return scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+recordCols+` FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		WHERE a.id = $1
	`, id))
}

func (r *Repository) listRecords(ctx context.Context, where string, args ...any) ([]AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordCols+` FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		`+where+` ORDER BY a.date DESC, a.id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Records lists every record.
func (r *Repository) Records(ctx context.Context) ([]AttendanceRecord, error) {
	return r.listRecords(ctx, ``)
}

// RecordsByCourse lists one course's records.
func (r *Repository) RecordsByCourse(ctx context.Context, courseID int64) ([]AttendanceRecord, error) {
	return r.listRecords(ctx, `WHERE a.course_id = $1`, courseID)
}

// RecordsByStudent lists one student's records.
func (r *Repository) RecordsByStudent(ctx context.Context, studentID int64) ([]AttendanceRecord, error) {
	return r.listRecords(ctx, `WHERE a.student_id = $1`, studentID)
}

// RecordsByTeacher lists records across all of a teacher's courses.
func (r *Repository) RecordsByTeacher(ctx context.Context, teacherID int64) ([]AttendanceRecord, error) {
	return r.listRecords(ctx, `
		WHERE a.course_id IN (SELECT id FROM courses WHERE teacher_id = $1)`, teacherID)
}

// RecordsForDate lists one course's records for a single calendar date.
func (r *Repository) RecordsForDate(ctx context.Context, courseID int64, date string) ([]AttendanceRecord, error) {
	return r.listRecords(ctx, `WHERE a.course_id = $1 AND a.date = $2`, courseID, date)
}

// UpdateRecord rewrites the status (and optionally date) of an existing record.
func (r *Repository) UpdateRecord(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records SET status = $2, date = $3 WHERE id = $1
	`, rec.ID, rec.Status, rec.Date)
	if err != nil {
		if isUniqueViolation(err) {
			return AttendanceRecord{}, ErrDuplicateMark
		}
		return AttendanceRecord{}, err
	}
	if err := rowsAffected(res); err != nil {
		return AttendanceRecord{}, err
	}
	return r.RecordByID(ctx, rec.ID)
}

// DeleteRecord removes one record.
func (r *Repository) DeleteRecord(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// DeleteAllRecords removes every record.
func (r *Repository) DeleteAllRecords(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records`)
	return err
}

// Summary aggregates one course's record counts by status.
func (r *Repository) Summary(ctx context.Context, courseID int64) (CourseSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM attendance_records
		WHERE course_id = $1 GROUP BY status
	`, courseID)
	if err != nil {
		return CourseSummary{}, err
	}
	defer rows.Close()
	sum := CourseSummary{CourseID: courseID, ByStatus: map[string]int{}}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return CourseSummary{}, err
		}
		sum.ByStatus[status] = n
		sum.Total += n
	}
	return sum, rows.Err()
}

// ---------- feedback ----------

func (r *Repository) listFeedback(ctx context.Context, where string, args ...any) ([]Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, course_id, message, hidden, created_at
		FROM feedback `+where+` ORDER BY created_at DESC, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.StudentID, &f.CourseID, &f.Message, &f.Hidden, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CreateFeedback records a student's message.
func (r *Repository) CreateFeedback(ctx context.Context, f Feedback) (Feedback, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO feedback (student_id, course_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, f.StudentID, f.CourseID, f.Message).Scan(&f.ID, &f.CreatedAt)
	return f, err
}

// FeedbackByStudent lists a student's own feedback, hidden items excluded.
func (r *Repository) FeedbackByStudent(ctx context.Context, studentID int64) ([]Feedback, error) {
	return r.listFeedback(ctx, `WHERE student_id = $1 AND NOT hidden`, studentID)
}

// FeedbackByTeacher lists feedback for a teacher's courses. The author's
// hidden flag does not apply here: hiding is per-user, not a delete.
func (r *Repository) FeedbackByTeacher(ctx context.Context, teacherID int64) ([]Feedback, error) {
	return r.listFeedback(ctx, `
		WHERE course_id IN (SELECT id FROM courses WHERE teacher_id = $1)`, teacherID)
}

// HideFeedback sets the author-side visibility flag. Only the author may hide.
func (r *Repository) HideFeedback(ctx context.Context, id, studentID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE feedback SET hidden = TRUE WHERE id = $1 AND student_id = $2
	`, id, studentID)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// DeleteFeedback removes feedback for good (teacher action).
func (r *Repository) DeleteFeedback(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// ---------- notifications ----------

// CreateNotification records an admin broadcast.
func (r *Repository) CreateNotification(ctx context.Context, n Notification) (Notification, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (title, message, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, n.Title, n.Message, n.Role).Scan(&n.ID, &n.CreatedAt)
	return n, err
}

func (r *Repository) listNotifications(ctx context.Context, where string, args ...any) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, message, role, created_at
		FROM notifications `+where+` ORDER BY created_at DESC, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Role, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Notifications lists every broadcast (admin view).
func (r *Repository) Notifications(ctx context.Context) ([]Notification, error) {
	return r.listNotifications(ctx, ``)
}

// NotificationByID fetches a single broadcast.
func (r *Repository) NotificationByID(ctx context.Context, id int64) (Notification, error) {
	var n Notification
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, message, role, created_at
		FROM notifications WHERE id = $1
	`, id).Scan(&n.ID, &n.Title, &n.Message, &n.Role, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	return n, err
}

// NotificationsForRole lists broadcasts targeted at a role or at everyone.
func (r *Repository) NotificationsForRole(ctx context.Context, role string) ([]Notification, error) {
	return r.listNotifications(ctx, `WHERE role = $1 OR role = 'all'`, role)
}

// DeleteNotification removes one broadcast.
func (r *Repository) DeleteNotification(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
