package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aplus/internal/config"
	"aplus/internal/queue"
	"aplus/internal/school"
)

func testConfig() config.App {
	return config.App{
		JWTIssuer:     "aplus-test",
		JWTSigningKey: "test-signing-key",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
}

func setup(t *testing.T) (*gin.Engine, *school.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := school.NewService(school.NewMemory())
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin@test.test", "admin@123"))

	r := gin.New()
	New(svc, queue.NewInMemory(16), nil, testConfig()).Register(r)
	return r, svc
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

type tokenPair struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

func login(t *testing.T, r *gin.Engine, username, password string) tokenPair {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/api/login/", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())
	return decode[tokenPair](t, rec)
}

func adminToken(t *testing.T, r *gin.Engine) string {
	return login(t, r, "admin@test.test", "admin@123").Access
}

// seed creates a teacher, two enrolled students and a course through the API.
func seed(t *testing.T, r *gin.Engine) (course school.Course, students []school.Student, teacher school.Teacher) {
	t.Helper()
	admin := adminToken(t, r)

	rec := do(t, r, http.MethodPost, "/api/teachers/", admin, gin.H{"name": "Ada", "dept": "CS", "email": "ada@test.test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	teacher = decode[school.Teacher](t, rec)

	for _, email := range []string{"s1@test.test", "s2@test.test"} {
		rec = do(t, r, http.MethodPost, "/api/students/", admin, gin.H{"name": "Student", "dept": "CS", "email": email})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		students = append(students, decode[school.Student](t, rec))
	}

	rec = do(t, r, http.MethodPost, "/api/courses/", admin, gin.H{
		"name": "Algorithms", "teacherId": teacher.ID,
		"studentIds": []int64{students[0].ID, students[1].ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	course = decode[school.Course](t, rec)
	return course, students, teacher
}

func TestLoginEndpoint(t *testing.T) {
	r, _ := setup(t)

	pair := login(t, r, "admin@test.test", "admin@123")
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.Equal(t, school.RoleAdmin, pair.Role)
	assert.Equal(t, "admin@test.test", pair.Username)

	rec := do(t, r, http.MethodPost, "/api/login/", "", gin.H{"username": "admin@test.test", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	r, _ := setup(t)

	rec := do(t, r, http.MethodGet, "/api/students/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/students/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRotation(t *testing.T) {
	r, _ := setup(t)
	pair := login(t, r, "admin@test.test", "admin@123")

	rec := do(t, r, http.MethodPost, "/api/token/refresh/", "", gin.H{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode[tokenPair](t, rec)
	assert.NotEmpty(t, next.Access)
	assert.NotEqual(t, pair.Refresh, next.Refresh)

	// the old refresh token was revoked by the rotation
	rec = do(t, r, http.MethodPost, "/api/token/refresh/", "", gin.H{"refresh": pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the new one works
	rec = do(t, r, http.MethodPost, "/api/token/refresh/", "", gin.H{"refresh": next.Refresh})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	r, _ := setup(t)
	pair := login(t, r, "admin@test.test", "admin@123")

	rec := do(t, r, http.MethodPost, "/api/token/refresh/", "", gin.H{"refresh": pair.Access})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesRefresh(t *testing.T) {
	r, _ := setup(t)
	pair := login(t, r, "admin@test.test", "admin@123")

	rec := do(t, r, http.MethodPost, "/api/logout/", pair.Access, gin.H{"refresh": pair.Refresh})
	assert.Equal(t, http.StatusResetContent, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/token/refresh/", "", gin.H{"refresh": pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResetPasswordEndpoint(t *testing.T) {
	r, _ := setup(t)
	seed(t, r)

	rec := do(t, r, http.MethodPost, "/api/reset-password/", "", gin.H{"username": "s1@test.test", "new_password": "brandnew"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	login(t, r, "s1@test.test", "brandnew")
	rec = do(t, r, http.MethodPost, "/api/login/", "", gin.H{"username": "s1@test.test", "password": school.DefaultStudentPassword})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentCRUD(t *testing.T) {
	r, _ := setup(t)
	admin := adminToken(t, r)

	rec := do(t, r, http.MethodPost, "/api/students/", admin, gin.H{"name": "Bob", "dept": "CS", "email": "bob@test.test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[school.Student](t, rec)
	assert.Equal(t, "bob@test.test", created.Email)

	// duplicate email rejected
	rec = do(t, r, http.MethodPost, "/api/students/", admin, gin.H{"name": "Bob 2", "dept": "CS", "email": "bob@test.test"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/students/", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]school.Student](t, rec), 1)

	rec = do(t, r, http.MethodPatch, fmt.Sprintf("/api/students/%d/", created.ID), admin, gin.H{"dept": "EE"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[school.Student](t, rec)
	assert.Equal(t, "EE", patched.Dept)
	assert.Equal(t, "Bob", patched.Name, "patch must not blank other fields")

	rec = do(t, r, http.MethodDelete, fmt.Sprintf("/api/students/%d/", created.ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, http.MethodGet, fmt.Sprintf("/api/students/%d/", created.ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoleScoping(t *testing.T) {
	r, _ := setup(t)
	course, students, _ := seed(t, r)
	student := login(t, r, students[0].Email, school.DefaultStudentPassword).Access
	teacher := login(t, r, "ada@test.test", school.DefaultTeacherPassword).Access

	// students cannot create students or mark attendance
	rec := do(t, r, http.MethodPost, "/api/students/", student, gin.H{"name": "X", "dept": "CS", "email": "x@test.test"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, r, http.MethodPost, "/api/attendance/", student, gin.H{
		"studentId": students[0].ID, "courseId": course.ID, "date": "2026-01-12", "status": school.StatusPresent,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// teachers can create students but not teachers
	rec = do(t, r, http.MethodPost, "/api/students/", teacher, gin.H{"name": "X", "dept": "CS", "email": "x@test.test"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, r, http.MethodPost, "/api/teachers/", teacher, gin.H{"name": "Y", "dept": "CS", "email": "y@test.test"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a student listing students sees only their own profile
	rec = do(t, r, http.MethodGet, "/api/students/", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]school.Student](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, students[0].ID, mine[0].ID)
}

func TestUpdateCourseValidatesRoster(t *testing.T) {
	r, _ := setup(t)
	course, students, teacher := seed(t, r)
	admin := adminToken(t, r)

	// an unknown student id must not end up on the roster
	rec := do(t, r, http.MethodPut, fmt.Sprintf("/api/courses/%d/", course.ID), admin, gin.H{
		"name": "Algorithms", "teacherId": teacher.ID, "studentIds": []int64{9999},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodGet, fmt.Sprintf("/api/courses/%d/", course.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[school.Course](t, rec)
	assert.ElementsMatch(t, []int64{students[0].ID, students[1].ID}, got.StudentIDs)

	rec = do(t, r, http.MethodPut, fmt.Sprintf("/api/courses/%d/", course.ID), admin, gin.H{
		"name": "Data Structures", "teacherId": teacher.ID, "studentIds": []int64{students[0].ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[school.Course](t, rec)
	assert.Equal(t, "Data Structures", updated.Name)
	assert.ElementsMatch(t, []int64{students[0].ID}, updated.StudentIDs)
}

func TestTeacherMeAndCourses(t *testing.T) {
	r, _ := setup(t)
	course, _, seeded := seed(t, r)
	teacher := login(t, r, "ada@test.test", school.DefaultTeacherPassword).Access

	rec := do(t, r, http.MethodGet, "/api/teachers/me/", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[school.Teacher](t, rec)
	assert.Equal(t, seeded.ID, me.ID)

	// a teacher listing courses sees only their own
	rec = do(t, r, http.MethodGet, "/api/courses/", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	courses := decode[[]school.Course](t, rec)
	require.Len(t, courses, 1)
	assert.Equal(t, course.ID, courses[0].ID)
}

func TestStudentMyCoursesAndEnroll(t *testing.T) {
	r, _ := setup(t)
	course, students, _ := seed(t, r)
	admin := adminToken(t, r)

	rec := do(t, r, http.MethodPost, "/api/students/", admin, gin.H{"name": "New", "dept": "CS", "email": "new@test.test"})
	require.Equal(t, http.StatusCreated, rec.Code)
	newcomer := decode[school.Student](t, rec)
	newcomerToken := login(t, r, newcomer.Email, school.DefaultStudentPassword).Access

	rec = do(t, r, http.MethodGet, "/api/students/my-courses/", newcomerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]school.Course](t, rec))

	// self-enroll, no body
	rec = do(t, r, http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll-student/", course.ID), newcomerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[school.Course](t, rec)
	assert.Contains(t, updated.StudentIDs, newcomer.ID)

	rec = do(t, r, http.MethodGet, "/api/students/my-courses/", newcomerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]school.Course](t, rec), 1)

	// admin enrolls by id; repeating it stays a single membership
	rec = do(t, r, http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll-student/", course.ID), admin, gin.H{"student_id": students[0].ID})
	require.Equal(t, http.StatusOK, rec.Code)
	updated = decode[school.Course](t, rec)
	assert.Len(t, updated.StudentIDs, 3)
}

func TestTeacherMarksWholeRoster(t *testing.T) {
	r, _ := setup(t)
	course, students, _ := seed(t, r)
	teacher := login(t, r, "ada@test.test", school.DefaultTeacherPassword).Access

	payload := []gin.H{
		{"studentId": students[0].ID, "courseId": course.ID, "date": "2026-01-12", "status": school.StatusPresent},
		{"studentId": students[1].ID, "courseId": course.ID, "date": "2026-01-12", "status": school.StatusPresent},
	}
	rec := do(t, r, http.MethodPost, "/api/attendance/bulk/", teacher, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[school.BulkMarkResult](t, rec)
	assert.Len(t, res.Created, 2)
	assert.Empty(t, res.Skipped)

	// a resubmission of the same roster marks nobody
	rec = do(t, r, http.MethodPost, "/api/attendance/bulk/", teacher, payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, fmt.Sprintf("/api/attendance/by-course/%d/", course.ID), teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]school.AttendanceRecord](t, rec)
	require.Len(t, records, 2)
	assert.NotEmpty(t, records[0].StudentName)
}

func TestAttendanceVisibility(t *testing.T) {
	r, _ := setup(t)
	course, students, _ := seed(t, r)
	teacher := login(t, r, "ada@test.test", school.DefaultTeacherPassword).Access

	rec := do(t, r, http.MethodPost, "/api/attendance/", teacher, gin.H{
		"studentId": students[0].ID, "courseId": course.ID, "date": "2026-01-12", "status": school.StatusAbsent,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// the marked student sees the record, the other sees nothing
	s0 := login(t, r, students[0].Email, school.DefaultStudentPassword).Access
	rec = do(t, r, http.MethodGet, "/api/attendance/", s0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]school.AttendanceRecord](t, rec), 1)

	s1 := login(t, r, students[1].Email, school.DefaultStudentPassword).Access
	rec = do(t, r, http.MethodGet, "/api/attendance/", s1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]school.AttendanceRecord](t, rec))
}

func TestAttendanceEditAndDelete(t *testing.T) {
	r, _ := setup(t)
	course, students, _ := seed(t, r)
	teacher := login(t, r, "ada@test.test", school.DefaultTeacherPassword).Access

	rec := do(t, r, http.MethodPost, "/api/attendance/", teacher, gin.H{
		"studentId": students[0].ID, "courseId": course.ID, "date": "2026-01-12", "status": school.StatusPresent,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	mark := decode[school.AttendanceRecord](t, rec)

	rec = do(t, r, http.MethodPatch, fmt.Sprintf("/api/attendance/%d/", mark.ID), teacher, gin.H{"status": school.StatusLate})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, school.StatusLate, decode[school.AttendanceRecord](t, rec).Status)

	rec = do(t, r, http.MethodDelete, fmt.Sprintf("/api/attendance/%d/", mark.ID), teacher, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, http.MethodDelete, fmt.Sprintf("/api/attendance/%d/", mark.ID), teacher, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceSummaryEndpoint(t *testing.T) {
	r, _ := setup(t)
	course, students, _ := seed(t, r)
	teacher := login(t, r, "ada@test.test", school.DefaultTeacherPassword).Access

	rec := do(t, r, http.MethodPost, "/api/attendance/bulk/", teacher, []gin.H{
		{"studentId": students[0].ID, "courseId": course.ID, "date": "2026-01-12", "status": school.StatusPresent},
		{"studentId": students[1].ID, "courseId": course.ID, "date": "2026-01-12", "status": school.StatusAbsent},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/attendance/summary/", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sums := decode[[]school.CourseSummary](t, rec)
	require.Len(t, sums, 1)
	assert.Equal(t, 2, sums[0].Total)
	assert.Equal(t, 1, sums[0].ByStatus[school.StatusPresent])

	rec = do(t, r, http.MethodGet, fmt.Sprintf("/api/attendance/summary/?course_id=%d", course.ID), teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]school.CourseSummary](t, rec), 1)
}

func TestFeedbackFlow(t *testing.T) {
	r, _ := setup(t)
	course, students, _ := seed(t, r)
	student := login(t, r, students[0].Email, school.DefaultStudentPassword).Access
	teacher := login(t, r, "ada@test.test", school.DefaultTeacherPassword).Access

	rec := do(t, r, http.MethodPost, "/api/feedback/", student, gin.H{"courseId": course.ID, "message": "more examples please"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fb := decode[school.Feedback](t, rec)

	rec = do(t, r, http.MethodGet, "/api/feedback/my/", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]school.Feedback](t, rec), 1)

	rec = do(t, r, http.MethodGet, "/api/feedback/", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]school.Feedback](t, rec), 1)

	// hiding removes it from the author's view only
	rec = do(t, r, http.MethodPost, fmt.Sprintf("/api/feedback/%d/hide/", fb.ID), student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodGet, "/api/feedback/my/", student, nil)
	assert.Empty(t, decode[[]school.Feedback](t, rec))
	rec = do(t, r, http.MethodGet, "/api/feedback/", teacher, nil)
	assert.Len(t, decode[[]school.Feedback](t, rec), 1)

	// only the author can hide
	s1 := login(t, r, students[1].Email, school.DefaultStudentPassword).Access
	rec = do(t, r, http.MethodPost, fmt.Sprintf("/api/feedback/%d/hide/", fb.ID), s1, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// the teacher deletes it for real
	rec = do(t, r, http.MethodDelete, fmt.Sprintf("/api/feedback/%d/", fb.ID), teacher, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, http.MethodGet, "/api/feedback/", teacher, nil)
	assert.Empty(t, decode[[]school.Feedback](t, rec))
}

func TestNotificationsByRole(t *testing.T) {
	r, _ := setup(t)
	_, students, _ := seed(t, r)
	admin := adminToken(t, r)

	for _, n := range []gin.H{
		{"title": "Holiday", "message": "Monday off", "role": "all"},
		{"title": "Exam", "message": "Friday", "role": "student"},
		{"title": "Meeting", "message": "Thursday", "role": "teacher"},
	} {
		rec := do(t, r, http.MethodPost, "/api/notifications/", admin, n)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	student := login(t, r, students[0].Email, school.DefaultStudentPassword).Access
	rec := do(t, r, http.MethodGet, "/api/notifications/my/", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]school.Notification](t, rec), 2)

	teacher := login(t, r, "ada@test.test", school.DefaultTeacherPassword).Access
	rec = do(t, r, http.MethodGet, "/api/notifications/my/", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]school.Notification](t, rec), 2)

	// creating notifications is admin-only
	rec = do(t, r, http.MethodPost, "/api/notifications/", teacher, gin.H{"title": "X", "message": "Y"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteAllEndpoints(t *testing.T) {
	r, _ := setup(t)
	seed(t, r)
	admin := adminToken(t, r)

	for _, path := range []string{"/api/attendance/all/", "/api/courses/all/", "/api/students/all/", "/api/teachers/all/"} {
		rec := do(t, r, http.MethodDelete, path, admin, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code, path)
	}

	rec := do(t, r, http.MethodGet, "/api/students/", admin, nil)
	assert.Empty(t, decode[[]school.Student](t, rec))
	rec = do(t, r, http.MethodGet, "/api/teachers/", admin, nil)
	assert.Empty(t, decode[[]school.Teacher](t, rec))
}

func TestDeletedTeacherCannotLogin(t *testing.T) {
	r, _ := setup(t)
	_, _, teacher := seed(t, r)
	admin := adminToken(t, r)

	rec := do(t, r, http.MethodDelete, fmt.Sprintf("/api/teachers/%d/", teacher.ID), admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/login/", "", gin.H{"username": "ada@test.test", "password": school.DefaultTeacherPassword})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// their courses went with them
	rec = do(t, r, http.MethodGet, "/api/courses/", admin, nil)
	assert.Empty(t, decode[[]school.Course](t, rec))
}
