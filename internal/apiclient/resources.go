package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"aplus/internal/school"
)

// Typed wrappers over the API surface. Paths keep the server's trailing
// slash; dropping it would bounce through a redirect.

func (c *Client) Students(ctx context.Context) ([]school.Student, error) {
	var out []school.Student
	return out, c.call(ctx, http.MethodGet, "/api/students/", nil, &out, true)
}

func (c *Client) CreateStudent(ctx context.Context, name, dept, email string) (school.Student, error) {
	var out school.Student
	body := map[string]string{"name": name, "dept": dept, "email": email}
	return out, c.call(ctx, http.MethodPost, "/api/students/", body, &out, true)
}

func (c *Client) Student(ctx context.Context, id int64) (school.Student, error) {
	var out school.Student
	return out, c.call(ctx, http.MethodGet, fmt.Sprintf("/api/students/%d/", id), nil, &out, true)
}

func (c *Client) UpdateStudent(ctx context.Context, s school.Student) (school.Student, error) {
	var out school.Student
	return out, c.call(ctx, http.MethodPut, fmt.Sprintf("/api/students/%d/", s.ID), s, &out, true)
}

func (c *Client) DeleteStudent(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/students/%d/", id), nil, nil, true)
}

func (c *Client) DeleteAllStudents(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/api/students/all/", nil, nil, true)
}

// MyCourses lists the courses the calling student is enrolled in.
func (c *Client) MyCourses(ctx context.Context) ([]school.Course, error) {
	var out []school.Course
	return out, c.call(ctx, http.MethodGet, "/api/students/my-courses/", nil, &out, true)
}

func (c *Client) Teachers(ctx context.Context) ([]school.Teacher, error) {
	var out []school.Teacher
	return out, c.call(ctx, http.MethodGet, "/api/teachers/", nil, &out, true)
}

func (c *Client) CreateTeacher(ctx context.Context, name, dept, email string) (school.Teacher, error) {
	var out school.Teacher
	body := map[string]string{"name": name, "dept": dept, "email": email}
	return out, c.call(ctx, http.MethodPost, "/api/teachers/", body, &out, true)
}

// Me returns the calling teacher's own profile.
func (c *Client) Me(ctx context.Context) (school.Teacher, error) {
	var out school.Teacher
	return out, c.call(ctx, http.MethodGet, "/api/teachers/me/", nil, &out, true)
}

func (c *Client) UpdateTeacher(ctx context.Context, t school.Teacher) (school.Teacher, error) {
	var out school.Teacher
	return out, c.call(ctx, http.MethodPut, fmt.Sprintf("/api/teachers/%d/", t.ID), t, &out, true)
}

func (c *Client) DeleteTeacher(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/teachers/%d/", id), nil, nil, true)
}

func (c *Client) DeleteAllTeachers(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/api/teachers/all/", nil, nil, true)
}

func (c *Client) Courses(ctx context.Context) ([]school.Course, error) {
	var out []school.Course
	return out, c.call(ctx, http.MethodGet, "/api/courses/", nil, &out, true)
}

func (c *Client) CreateCourse(ctx context.Context, course school.Course) (school.Course, error) {
	var out school.Course
	return out, c.call(ctx, http.MethodPost, "/api/courses/", course, &out, true)
}

func (c *Client) Course(ctx context.Context, id int64) (school.Course, error) {
	var out school.Course
	return out, c.call(ctx, http.MethodGet, fmt.Sprintf("/api/courses/%d/", id), nil, &out, true)
}

func (c *Client) DeleteCourse(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/courses/%d/", id), nil, nil, true)
}

// EnrollStudent adds a student to a course. studentID 0 enrolls the
// caller, which is the student self-service path.
func (c *Client) EnrollStudent(ctx context.Context, courseID, studentID int64) (school.Course, error) {
	var body any
	if studentID != 0 {
		body = map[string]int64{"student_id": studentID}
	}
	var out school.Course
	return out, c.call(ctx, http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll-student/", courseID), body, &out, true)
}

func (c *Client) Attendance(ctx context.Context) ([]school.AttendanceRecord, error) {
	var out []school.AttendanceRecord
	return out, c.call(ctx, http.MethodGet, "/api/attendance/", nil, &out, true)
}

func (c *Client) Mark(ctx context.Context, rec school.AttendanceRecord) (school.AttendanceRecord, error) {
	var out school.AttendanceRecord
	return out, c.call(ctx, http.MethodPost, "/api/attendance/", rec, &out, true)
}

func (c *Client) BulkMark(ctx context.Context, recs []school.AttendanceRecord) (school.BulkMarkResult, error) {
	var out school.BulkMarkResult
	return out, c.call(ctx, http.MethodPost, "/api/attendance/bulk/", recs, &out, true)
}

func (c *Client) AttendanceByCourse(ctx context.Context, courseID int64) ([]school.AttendanceRecord, error) {
	var out []school.AttendanceRecord
	return out, c.call(ctx, http.MethodGet, fmt.Sprintf("/api/attendance/by-course/%d/", courseID), nil, &out, true)
}

func (c *Client) AttendanceSummary(ctx context.Context) ([]school.CourseSummary, error) {
	var out []school.CourseSummary
	return out, c.call(ctx, http.MethodGet, "/api/attendance/summary/", nil, &out, true)
}

func (c *Client) UpdateAttendance(ctx context.Context, id int64, status, date string) (school.AttendanceRecord, error) {
	var out school.AttendanceRecord
	body := map[string]string{"status": status, "date": date}
	return out, c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/attendance/%d/", id), body, &out, true)
}

func (c *Client) DeleteAttendance(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/attendance/%d/", id), nil, nil, true)
}

// Feedback lists feedback on the calling teacher's courses.
func (c *Client) Feedback(ctx context.Context) ([]school.Feedback, error) {
	var out []school.Feedback
	return out, c.call(ctx, http.MethodGet, "/api/feedback/", nil, &out, true)
}

func (c *Client) SubmitFeedback(ctx context.Context, courseID int64, message string) (school.Feedback, error) {
	var out school.Feedback
	body := map[string]any{"courseId": courseID, "message": message}
	return out, c.call(ctx, http.MethodPost, "/api/feedback/", body, &out, true)
}

// MyFeedback lists the calling student's own feedback, hidden entries excluded.
func (c *Client) MyFeedback(ctx context.Context) ([]school.Feedback, error) {
	var out []school.Feedback
	return out, c.call(ctx, http.MethodGet, "/api/feedback/my/", nil, &out, true)
}

// HideFeedback removes an entry from the caller's own view only.
func (c *Client) HideFeedback(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/feedback/%d/hide/", id), nil, nil, true)
}

func (c *Client) DeleteFeedback(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/feedback/%d/", id), nil, nil, true)
}

func (c *Client) Notifications(ctx context.Context) ([]school.Notification, error) {
	var out []school.Notification
	return out, c.call(ctx, http.MethodGet, "/api/notifications/", nil, &out, true)
}

func (c *Client) Broadcast(ctx context.Context, title, message, role string) (school.Notification, error) {
	var out school.Notification
	body := map[string]string{"title": title, "message": message, "role": role}
	return out, c.call(ctx, http.MethodPost, "/api/notifications/", body, &out, true)
}

// MyNotifications lists broadcasts for the caller's role.
func (c *Client) MyNotifications(ctx context.Context) ([]school.Notification, error) {
	var out []school.Notification
	return out, c.call(ctx, http.MethodGet, "/api/notifications/my/", nil, &out, true)
}

func (c *Client) DeleteNotification(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/notifications/%d/", id), nil, nil, true)
}
