package school

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Default passwords assigned to accounts created by admins/teachers.
// Users are expected to change them through the reset flow.
const (
	DefaultStudentPassword = "student@123"
	DefaultTeacherPassword = "teacher@123"
)

// Service owns the business rules over a Store.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Store exposes the underlying store for read paths that need no rules.
func (s *Service) Store() Store { return s.store }

// Login checks credentials and returns the user.
func (s *Service) Login(ctx context.Context, username, password string) (User, error) {
	u, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrBadCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

// ResetPassword replaces a user's password.
func (s *Service) ResetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.SetUserPassword(ctx, username, string(hash))
}

// CreateStudent creates a student profile and its login user in one step.
// The username is the email; the password starts at the role default.
func (s *Service) CreateStudent(ctx context.Context, name, dept, email string) (Student, error) {
	u, err := newLoginUser(email, RoleStudent, DefaultStudentPassword)
	if err != nil {
		return Student{}, err
	}
	return s.store.CreateStudent(ctx, Student{Name: name, Dept: dept}, u)
}

// CreateTeacher mirrors CreateStudent for the teacher role.
func (s *Service) CreateTeacher(ctx context.Context, name, dept, email string) (Teacher, error) {
	u, err := newLoginUser(email, RoleTeacher, DefaultTeacherPassword)
	if err != nil {
		return Teacher{}, err
	}
	return s.store.CreateTeacher(ctx, Teacher{Name: name, Dept: dept}, u)
}

func newLoginUser(email, role, password string) (User, error) {
	if email == "" {
		return User{}, fmt.Errorf("email required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return User{Username: email, Email: email, Role: role, PasswordHash: string(hash)}, nil
}

// EnsureAdmin creates the admin login on first start. An existing user
// with the same username is left untouched.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.store.UserByUsername(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	u, err := newLoginUser(email, RoleAdmin, password)
	if err != nil {
		return err
	}
	_, err = s.store.CreateUser(ctx, u)
	return err
}

// CreateCourse validates the teacher reference and writes the course.
func (s *Service) CreateCourse(ctx context.Context, c Course) (Course, error) {
	if err := s.checkCourseRefs(ctx, c); err != nil {
		return Course{}, err
	}
	return s.store.CreateCourse(ctx, c)
}

// UpdateCourse replaces a course's name, teacher and roster. References
// are checked the same way as on create.
func (s *Service) UpdateCourse(ctx context.Context, c Course) (Course, error) {
	if err := s.checkCourseRefs(ctx, c); err != nil {
		return Course{}, err
	}
	return s.store.UpdateCourse(ctx, c)
}

func (s *Service) checkCourseRefs(ctx context.Context, c Course) error {
	if c.Name == "" {
		return fmt.Errorf("course name required")
	}
	if _, err := s.store.TeacherByID(ctx, c.TeacherID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("teacher %d: %w", c.TeacherID, ErrNotFound)
		}
		return err
	}
	for _, sid := range c.StudentIDs {
		if _, err := s.store.StudentByID(ctx, sid); err != nil {
			return fmt.Errorf("student %d: %w", sid, err)
		}
	}
	return nil
}

// EnrollStudent adds a student to a course after checking both exist.
// Re-enrolling is a no-op.
func (s *Service) EnrollStudent(ctx context.Context, courseID, studentID int64) error {
	if _, err := s.store.CourseByID(ctx, courseID); err != nil {
		return fmt.Errorf("course %d: %w", courseID, err)
	}
	if _, err := s.store.StudentByID(ctx, studentID); err != nil {
		return fmt.Errorf("student %d: %w", studentID, err)
	}
	return s.store.Enroll(ctx, courseID, studentID)
}

func (s *Service) validateRecord(ctx context.Context, rec AttendanceRecord) error {
	if !ValidStatus(rec.Status) || rec.Status == StatusUnmarked {
		return ErrInvalidStatus
	}
	if _, err := time.Parse(DateLayout, rec.Date); err != nil {
		return ErrInvalidDate
	}
	course, err := s.store.CourseByID(ctx, rec.CourseID)
	if err != nil {
		return fmt.Errorf("course %d: %w", rec.CourseID, err)
	}
	for _, sid := range course.StudentIDs {
		if sid == rec.StudentID {
			return nil
		}
	}
	return ErrNotEnrolled
}

// Mark records a single attendance mark, overwriting any existing mark
// for the same (student, course, date).
func (s *Service) Mark(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error) {
	if err := s.validateRecord(ctx, rec); err != nil {
		return AttendanceRecord{}, err
	}
	out, _, err := s.store.UpsertRecord(ctx, rec)
	return out, err
}

// BulkMark processes a teacher submission. Students that already hold a
// record for the submission date are skipped, never overwritten; the
// unique (student, course, date) key backs this up at the store. A
// submission in which every student is skipped fails with
// ErrNothingToMark so the caller is pointed at the edit flow instead.
func (s *Service) BulkMark(ctx context.Context, recs []AttendanceRecord) (BulkMarkResult, error) {
	res := BulkMarkResult{}
	if len(recs) == 0 {
		return res, ErrNothingToMark
	}

	// already-marked student set per (course, date)
	marked := map[string]map[int64]bool{}
	for _, rec := range recs {
		key := fmt.Sprintf("%d|%s", rec.CourseID, rec.Date)
		if _, ok := marked[key]; ok {
			continue
		}
		existing, err := s.store.RecordsForDate(ctx, rec.CourseID, rec.Date)
		if err != nil {
			return res, err
		}
		set := map[int64]bool{}
		for _, e := range existing {
			set[e.StudentID] = true
		}
		marked[key] = set
	}

	// validate the entire submission before touching the store so a
	// rejected batch writes nothing
	var pending []AttendanceRecord
	for _, rec := range recs {
		if marked[fmt.Sprintf("%d|%s", rec.CourseID, rec.Date)][rec.StudentID] {
			res.Skipped = append(res.Skipped, rec.StudentID)
			continue
		}
		if err := s.validateRecord(ctx, rec); err != nil {
			return BulkMarkResult{}, err
		}
		pending = append(pending, rec)
	}

	for _, rec := range pending {
		out, created, err := s.store.UpsertRecord(ctx, rec)
		if err != nil {
			return BulkMarkResult{}, err
		}
		if !created {
			// lost a race with a concurrent submission for the same key
			res.Skipped = append(res.Skipped, rec.StudentID)
			continue
		}
		res.Created = append(res.Created, out)
	}
	if len(res.Created) == 0 {
		return res, ErrNothingToMark
	}
	return res, nil
}

// UpdateRecord edits an existing record's status (and date, if provided).
func (s *Service) UpdateRecord(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error) {
	current, err := s.store.RecordByID(ctx, rec.ID)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if rec.Status == "" {
		rec.Status = current.Status
	}
	if !ValidStatus(rec.Status) {
		return AttendanceRecord{}, ErrInvalidStatus
	}
	if rec.Date == "" {
		rec.Date = current.Date
	} else if _, err := time.Parse(DateLayout, rec.Date); err != nil {
		return AttendanceRecord{}, ErrInvalidDate
	}
	if rec.Date != current.Date {
		existing, err := s.store.RecordsForDate(ctx, current.CourseID, rec.Date)
		if err != nil {
			return AttendanceRecord{}, err
		}
		for _, e := range existing {
			if e.StudentID == current.StudentID && e.ID != rec.ID {
				return AttendanceRecord{}, ErrDuplicateMark
			}
		}
	}
	return s.store.UpdateRecord(ctx, rec)
}

// SubmitFeedback records a student's message about a course. Enrollment
// is deliberately not required; the course just has to exist.
func (s *Service) SubmitFeedback(ctx context.Context, studentID, courseID int64, message string) (Feedback, error) {
	if message == "" {
		return Feedback{}, fmt.Errorf("message required")
	}
	if _, err := s.store.CourseByID(ctx, courseID); err != nil {
		return Feedback{}, fmt.Errorf("course %d: %w", courseID, err)
	}
	return s.store.CreateFeedback(ctx, Feedback{StudentID: studentID, CourseID: courseID, Message: message})
}

// Broadcast validates and records an admin notification.
func (s *Service) Broadcast(ctx context.Context, n Notification) (Notification, error) {
	if n.Title == "" || n.Message == "" {
		return Notification{}, fmt.Errorf("title and message are required")
	}
	switch n.Role {
	case RoleStudent, RoleTeacher, RoleAll:
	case "":
		n.Role = RoleAll
	default:
		return Notification{}, fmt.Errorf("unknown target role %q", n.Role)
	}
	return s.store.CreateNotification(ctx, n)
}

// Summaries aggregates attendance for the given courses.
func (s *Service) Summaries(ctx context.Context, courseIDs []int64) ([]CourseSummary, error) {
	out := make([]CourseSummary, 0, len(courseIDs))
	for _, id := range courseIDs {
		sum, err := s.store.Summary(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}
