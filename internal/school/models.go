package school

import "time"

// Roles known to the system.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleAll     = "all" // notification target only
)

// Attendance statuses.
const (
	StatusPresent  = "present"
	StatusAbsent   = "absent"
	StatusLate     = "late"
	StatusUnmarked = "unmarked"
)

// ValidStatus reports whether s is an accepted attendance status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusUnmarked:
		return true
	}
	return false
}

// DateLayout is the wire format for attendance dates (calendar date, no time).
const DateLayout = "2006-01-02"

// User is a login identity. Students and teachers each own exactly one.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Student as transmitted over the wire.
type Student struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"-"`
	Name   string `json:"name"`
	Dept   string `json:"dept"`
	Email  string `json:"email"`
}

// Teacher as transmitted over the wire.
type Teacher struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"-"`
	Name   string `json:"name"`
	Dept   string `json:"dept"`
	Email  string `json:"email"`
}

// Course owns its enrollment set. StudentIDs has set semantics:
// duplicates must not occur, order is not meaningful.
type Course struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	TeacherID  int64   `json:"teacherId"`
	StudentIDs []int64 `json:"studentIds"`
}

// AttendanceRecord is one mark for one student in one course on one date.
// At most one record exists per (StudentID, CourseID, Date).
type AttendanceRecord struct {
	ID          int64  `json:"id"`
	StudentID   int64  `json:"studentId"`
	StudentName string `json:"studentName,omitempty"`
	CourseID    int64  `json:"courseId"`
	Date        string `json:"date"`
	Status      string `json:"status"`
}

// Feedback is a student's message about a course. Students hide their
// own feedback with a per-user visibility flag; teachers delete it.
type Feedback struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"studentId"`
	CourseID  int64     `json:"courseId"`
	Message   string    `json:"message"`
	Hidden    bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is an admin broadcast to a role ("student", "teacher" or "all").
type Notification struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// CourseSummary aggregates attendance counts for one course.
type CourseSummary struct {
	CourseID int64          `json:"courseId"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

// BulkMarkResult reports what a bulk attendance submission actually did.
// Skipped carries the student ids that already had a record for the date.
type BulkMarkResult struct {
	Created []AttendanceRecord `json:"created"`
	Skipped []int64            `json:"skipped"`
}
