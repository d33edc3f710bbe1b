package school

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by every Store implementation. Handlers map
// these onto HTTP statuses.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("user with this email already exists")
	ErrNotEnrolled    = errors.New("student is not enrolled in this course")
	ErrDuplicateMark  = errors.New("attendance for this student, course and date already exists")
	ErrNothingToMark  = errors.New("no new attendance to submit")
	ErrInvalidStatus  = errors.New("invalid attendance status")
	ErrInvalidDate    = errors.New("invalid date, expected YYYY-MM-DD")
	ErrBadCredentials = errors.New("invalid credentials")
)

// Store is the persistence boundary. The Postgres implementation lives
// in repo.go; memory.go provides the same semantics for tests.
type Store interface {
	// Users and sessions.
	CreateUser(ctx context.Context, u User) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	SetUserPassword(ctx context.Context, username, passwordHash string) error
	SaveRefreshToken(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, jti string) error
	RefreshTokenActive(ctx context.Context, jti string) (bool, error)

	// Students. Creation writes the profile and its login user atomically.
	CreateStudent(ctx context.Context, s Student, u User) (Student, error)
	Students(ctx context.Context) ([]Student, error)
	StudentByID(ctx context.Context, id int64) (Student, error)
	StudentByUserID(ctx context.Context, userID int64) (Student, error)
	UpdateStudent(ctx context.Context, s Student) (Student, error)
	DeleteStudent(ctx context.Context, id int64) error
	DeleteAllStudents(ctx context.Context) error

	// Teachers.
	CreateTeacher(ctx context.Context, t Teacher, u User) (Teacher, error)
	Teachers(ctx context.Context) ([]Teacher, error)
	TeacherByID(ctx context.Context, id int64) (Teacher, error)
	TeacherByUserID(ctx context.Context, userID int64) (Teacher, error)
	UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	DeleteTeacher(ctx context.Context, id int64) error
	DeleteAllTeachers(ctx context.Context) error

	// Courses and enrollment. Enroll has set semantics: enrolling an
	// already-enrolled student is a no-op, not an error.
	CreateCourse(ctx context.Context, c Course) (Course, error)
	Courses(ctx context.Context) ([]Course, error)
	CoursesByTeacher(ctx context.Context, teacherID int64) ([]Course, error)
	CoursesByStudent(ctx context.Context, studentID int64) ([]Course, error)
	CourseByID(ctx context.Context, id int64) (Course, error)
	UpdateCourse(ctx context.Context, c Course) (Course, error)
	DeleteCourse(ctx context.Context, id int64) error
	DeleteAllCourses(ctx context.Context) error
	Enroll(ctx context.Context, courseID, studentID int64) error

	// Attendance. UpsertRecord enforces the one-record-per-
	// (student, course, date) key; created reports whether a new row
	// was written as opposed to an existing one updated.
	UpsertRecord(ctx context.Context, rec AttendanceRecord) (out AttendanceRecord, created bool, err error)
	RecordByID(ctx context.Context, id int64) (AttendanceRecord, error)
	Records(ctx context.Context) ([]AttendanceRecord, error)
	RecordsByCourse(ctx context.Context, courseID int64) ([]AttendanceRecord, error)
	RecordsByStudent(ctx context.Context, studentID int64) ([]AttendanceRecord, error)
	RecordsByTeacher(ctx context.Context, teacherID int64) ([]AttendanceRecord, error)
	RecordsForDate(ctx context.Context, courseID int64, date string) ([]AttendanceRecord, error)
	UpdateRecord(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error)
	DeleteRecord(ctx context.Context, id int64) error
	DeleteAllRecords(ctx context.Context) error
	Summary(ctx context.Context, courseID int64) (CourseSummary, error)

	// Feedback. Hidden is a per-author visibility flag, not a delete.
	CreateFeedback(ctx context.Context, f Feedback) (Feedback, error)
	FeedbackByStudent(ctx context.Context, studentID int64) ([]Feedback, error)
	FeedbackByTeacher(ctx context.Context, teacherID int64) ([]Feedback, error)
	HideFeedback(ctx context.Context, id, studentID int64) error
	DeleteFeedback(ctx context.Context, id int64) error

	// Notifications.
	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	Notifications(ctx context.Context) ([]Notification, error)
	NotificationByID(ctx context.Context, id int64) (Notification, error)
	NotificationsForRole(ctx context.Context, role string) ([]Notification, error)
	DeleteNotification(ctx context.Context, id int64) error

	// DeleteAllProfiles wipes every student and teacher in one call.
	DeleteAllProfiles(ctx context.Context) error
}
