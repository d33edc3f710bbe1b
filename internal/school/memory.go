package school

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Store with the same semantics as the Postgres
// repository, including cascading deletes and the unique attendance key.
// It backs the test suite and local development without a database.
type Memory struct {
	mu sync.Mutex

	nextID   int64
	users    map[int64]User
	tokens   map[string]memToken
	students map[int64]Student
	teachers map[int64]Teacher
	courses  map[int64]Course
	records  map[int64]AttendanceRecord
	feedback map[int64]Feedback
	notes    map[int64]Notification
}

type memToken struct {
	userID    int64
	expiresAt time.Time
	revoked   bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    map[int64]User{},
		tokens:   map[string]memToken{},
		students: map[int64]Student{},
		teachers: map[int64]Teacher{},
		courses:  map[int64]Course{},
		records:  map[int64]AttendanceRecord{},
		feedback: map[int64]Feedback{},
		notes:    map[int64]Notification{},
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// ---------- users & sessions ----------

func (m *Memory) addUser(u User) (User, error) {
	for _, ex := range m.users {
		if ex.Username == u.Username {
			return User{}, ErrDuplicateEmail
		}
	}
	u.ID = m.id()
	u.CreatedAt = time.Now().UTC()
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addUser(u)
}

func (m *Memory) UserByUsername(_ context.Context, username string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return User{}, ErrNotFound
}

func (m *Memory) SetUserPassword(_ context.Context, username, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Username == username {
			u.PasswordHash = hash
			m.users[id] = u
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) SaveRefreshToken(_ context.Context, jti string, userID int64, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[jti] = memToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *Memory) RevokeRefreshToken(_ context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[jti]; ok {
		t.revoked = true
		m.tokens[jti] = t
	}
	return nil
}

func (m *Memory) RefreshTokenActive(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[jti]
	return ok && !t.revoked && t.expiresAt.After(time.Now()), nil
}

// ---------- students ----------

func (m *Memory) CreateStudent(_ context.Context, s Student, u User) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.addUser(u)
	if err != nil {
		return Student{}, err
	}
	s.ID = m.id()
	s.UserID = u.ID
	s.Email = u.Email
	m.students[s.ID] = s
	return s, nil
}

func (m *Memory) Students(_ context.Context) ([]Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) StudentByID(_ context.Context, id int64) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return Student{}, ErrNotFound
}

func (m *Memory) StudentByUserID(_ context.Context, userID int64) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.UserID == userID {
			return s, nil
		}
	}
	return Student{}, ErrNotFound
}

func (m *Memory) UpdateStudent(_ context.Context, s Student) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.students[s.ID]
	if !ok {
		return Student{}, ErrNotFound
	}
	cur.Name, cur.Dept = s.Name, s.Dept
	if s.Email != "" {
		for id, u := range m.users {
			if u.Username == s.Email && id != cur.UserID {
				return Student{}, ErrDuplicateEmail
			}
		}
		u := m.users[cur.UserID]
		u.Email, u.Username = s.Email, s.Email
		m.users[cur.UserID] = u
		cur.Email = s.Email
	}
	m.students[s.ID] = cur
	return cur, nil
}

func (m *Memory) deleteStudentLocked(id int64) {
	s, ok := m.students[id]
	if !ok {
		return
	}
	delete(m.users, s.UserID)
	delete(m.students, id)
	for cid, c := range m.courses {
		c.StudentIDs = removeID(c.StudentIDs, id)
		m.courses[cid] = c
	}
	for rid, rec := range m.records {
		if rec.StudentID == id {
			delete(m.records, rid)
		}
	}
	for fid, f := range m.feedback {
		if f.StudentID == id {
			delete(m.feedback, fid)
		}
	}
}

func (m *Memory) DeleteStudent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return ErrNotFound
	}
	m.deleteStudentLocked(id)
	return nil
}

func (m *Memory) DeleteAllStudents(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.students {
		m.deleteStudentLocked(id)
	}
	return nil
}

// ---------- teachers ----------

func (m *Memory) CreateTeacher(_ context.Context, t Teacher, u User) (Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.addUser(u)
	if err != nil {
		return Teacher{}, err
	}
	t.ID = m.id()
	t.UserID = u.ID
	t.Email = u.Email
	m.teachers[t.ID] = t
	return t, nil
}

func (m *Memory) Teachers(_ context.Context) ([]Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Teacher, 0, len(m.teachers))
	for _, t := range m.teachers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) TeacherByID(_ context.Context, id int64) (Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teachers[id]; ok {
		return t, nil
	}
	return Teacher{}, ErrNotFound
}

func (m *Memory) TeacherByUserID(_ context.Context, userID int64) (Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if t.UserID == userID {
			return t, nil
		}
	}
	return Teacher{}, ErrNotFound
}

func (m *Memory) UpdateTeacher(_ context.Context, t Teacher) (Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.teachers[t.ID]
	if !ok {
		return Teacher{}, ErrNotFound
	}
	cur.Name, cur.Dept = t.Name, t.Dept
	if t.Email != "" {
		for id, u := range m.users {
			if u.Username == t.Email && id != cur.UserID {
				return Teacher{}, ErrDuplicateEmail
			}
		}
		u := m.users[cur.UserID]
		u.Email, u.Username = t.Email, t.Email
		m.users[cur.UserID] = u
		cur.Email = t.Email
	}
	m.teachers[t.ID] = cur
	return cur, nil
}

func (m *Memory) deleteTeacherLocked(id int64) {
	t, ok := m.teachers[id]
	if !ok {
		return
	}
	delete(m.users, t.UserID)
	delete(m.teachers, id)
	for cid, c := range m.courses {
		if c.TeacherID == id {
			m.deleteCourseLocked(cid)
		}
	}
}

func (m *Memory) DeleteTeacher(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teachers[id]; !ok {
		return ErrNotFound
	}
	m.deleteTeacherLocked(id)
	return nil
}

func (m *Memory) DeleteAllTeachers(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.teachers {
		m.deleteTeacherLocked(id)
	}
	return nil
}

func (m *Memory) DeleteAllProfiles(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.students {
		m.deleteStudentLocked(id)
	}
	for id := range m.teachers {
		m.deleteTeacherLocked(id)
	}
	return nil
}

// ---------- courses ----------

func (m *Memory) CreateCourse(_ context.Context, c Course) (Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.StudentIDs = dedupeIDs(c.StudentIDs)
	m.courses[c.ID] = c
	return c, nil
}

func (m *Memory) Courses(_ context.Context) ([]Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coursesWhere(func(Course) bool { return true }), nil
}

func (m *Memory) CoursesByTeacher(_ context.Context, teacherID int64) ([]Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coursesWhere(func(c Course) bool { return c.TeacherID == teacherID }), nil
}

func (m *Memory) CoursesByStudent(_ context.Context, studentID int64) ([]Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coursesWhere(func(c Course) bool {
		for _, sid := range c.StudentIDs {
			if sid == studentID {
				return true
			}
		}
		return false
	}), nil
}

func (m *Memory) coursesWhere(keep func(Course) bool) []Course {
	var out []Course
	for _, c := range m.courses {
		if keep(c) {
			cp := c
			cp.StudentIDs = append([]int64(nil), c.StudentIDs...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) CourseByID(_ context.Context, id int64) (Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.courses[id]; ok {
		c.StudentIDs = append([]int64(nil), c.StudentIDs...)
		return c, nil
	}
	return Course{}, ErrNotFound
}

func (m *Memory) UpdateCourse(_ context.Context, c Course) (Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[c.ID]; !ok {
		return Course{}, ErrNotFound
	}
	c.StudentIDs = dedupeIDs(c.StudentIDs)
	m.courses[c.ID] = c
	return c, nil
}

func (m *Memory) deleteCourseLocked(id int64) {
	delete(m.courses, id)
	for rid, rec := range m.records {
		if rec.CourseID == id {
			delete(m.records, rid)
		}
	}
	for fid, f := range m.feedback {
		if f.CourseID == id {
			delete(m.feedback, fid)
		}
	}
}

func (m *Memory) DeleteCourse(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[id]; !ok {
		return ErrNotFound
	}
	m.deleteCourseLocked(id)
	return nil
}

func (m *Memory) DeleteAllCourses(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.courses {
		m.deleteCourseLocked(id)
	}
	return nil
}

func (m *Memory) Enroll(_ context.Context, courseID, studentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return ErrNotFound
	}
	for _, sid := range c.StudentIDs {
		if sid == studentID {
			return nil
		}
	}
	c.StudentIDs = append(c.StudentIDs, studentID)
	m.courses[courseID] = c
	return nil
}

// ---------- attendance ----------

func (m *Memory) UpsertRecord(_ context.Context, rec AttendanceRecord) (AttendanceRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ex := range m.records {
		if ex.StudentID == rec.StudentID && ex.CourseID == rec.CourseID && ex.Date == rec.Date {
			ex.Status = rec.Status
			m.records[id] = ex
			return m.withName(ex), false, nil
		}
	}
	rec.ID = m.id()
	m.records[rec.ID] = rec
	return m.withName(rec), true, nil
}

func (m *Memory) withName(rec AttendanceRecord) AttendanceRecord {
	if s, ok := m.students[rec.StudentID]; ok {
		rec.StudentName = s.Name
	}
	return rec
}

func (m *Memory) RecordByID(_ context.Context, id int64) (AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		return m.withName(rec), nil
	}
	return AttendanceRecord{}, ErrNotFound
}

func (m *Memory) recordsWhere(keep func(AttendanceRecord) bool) []AttendanceRecord {
	var out []AttendanceRecord
	for _, rec := range m.records {
		if keep(rec) {
			out = append(out, m.withName(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) Records(_ context.Context) ([]AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordsWhere(func(AttendanceRecord) bool { return true }), nil
}

func (m *Memory) RecordsByCourse(_ context.Context, courseID int64) ([]AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordsWhere(func(r AttendanceRecord) bool { return r.CourseID == courseID }), nil
}

func (m *Memory) RecordsByStudent(_ context.Context, studentID int64) ([]AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordsWhere(func(r AttendanceRecord) bool { return r.StudentID == studentID }), nil
}

func (m *Memory) RecordsByTeacher(_ context.Context, teacherID int64) ([]AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordsWhere(func(r AttendanceRecord) bool {
		c, ok := m.courses[r.CourseID]
		return ok && c.TeacherID == teacherID
	}), nil
}

func (m *Memory) RecordsForDate(_ context.Context, courseID int64, date string) ([]AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordsWhere(func(r AttendanceRecord) bool {
		return r.CourseID == courseID && r.Date == date
	}), nil
}

func (m *Memory) UpdateRecord(_ context.Context, rec AttendanceRecord) (AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[rec.ID]
	if !ok {
		return AttendanceRecord{}, ErrNotFound
	}
	for id, other := range m.records {
		if id != rec.ID && other.StudentID == cur.StudentID &&
			other.CourseID == cur.CourseID && other.Date == rec.Date {
			return AttendanceRecord{}, ErrDuplicateMark
		}
	}
	cur.Status = rec.Status
	cur.Date = rec.Date
	m.records[rec.ID] = cur
	return m.withName(cur), nil
}

func (m *Memory) DeleteRecord(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) DeleteAllRecords(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = map[int64]AttendanceRecord{}
	return nil
}

func (m *Memory) Summary(_ context.Context, courseID int64) (CourseSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := CourseSummary{CourseID: courseID, ByStatus: map[string]int{}}
	for _, rec := range m.records {
		if rec.CourseID == courseID {
			sum.ByStatus[rec.Status]++
			sum.Total++
		}
	}
	return sum, nil
}

// ---------- feedback ----------

func (m *Memory) CreateFeedback(_ context.Context, f Feedback) (Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = m.id()
	f.CreatedAt = time.Now().UTC()
	m.feedback[f.ID] = f
	return f, nil
}

func (m *Memory) feedbackWhere(keep func(Feedback) bool) []Feedback {
	var out []Feedback
	for _, f := range m.feedback {
		if keep(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *Memory) FeedbackByStudent(_ context.Context, studentID int64) ([]Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feedbackWhere(func(f Feedback) bool {
		return f.StudentID == studentID && !f.Hidden
	}), nil
}

func (m *Memory) FeedbackByTeacher(_ context.Context, teacherID int64) ([]Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feedbackWhere(func(f Feedback) bool {
		c, ok := m.courses[f.CourseID]
		return ok && c.TeacherID == teacherID
	}), nil
}

func (m *Memory) HideFeedback(_ context.Context, id, studentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.feedback[id]
	if !ok || f.StudentID != studentID {
		return ErrNotFound
	}
	f.Hidden = true
	m.feedback[id] = f
	return nil
}

func (m *Memory) DeleteFeedback(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.feedback[id]; !ok {
		return ErrNotFound
	}
	delete(m.feedback, id)
	return nil
}

// ---------- notifications ----------

func (m *Memory) CreateNotification(_ context.Context, n Notification) (Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = m.id()
	n.CreatedAt = time.Now().UTC()
	m.notes[n.ID] = n
	return n, nil
}

func (m *Memory) notesWhere(keep func(Notification) bool) []Notification {
	var out []Notification
	for _, n := range m.notes {
		if keep(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *Memory) Notifications(_ context.Context) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notesWhere(func(Notification) bool { return true }), nil
}

func (m *Memory) NotificationByID(_ context.Context, id int64) (Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (m *Memory) NotificationsForRole(_ context.Context, role string) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notesWhere(func(n Notification) bool {
		return n.Role == role || n.Role == RoleAll
	}), nil
}

func (m *Memory) DeleteNotification(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func dedupeIDs(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
