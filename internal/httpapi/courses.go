package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aplus/internal/auth"
	"aplus/internal/school"
)

// listCourses is role-scoped: admin sees all, a teacher their own, a
// student the courses they are enrolled in.
func (h *Handler) listCourses(c *gin.Context) {
	ctx := c.Request.Context()
	claims := auth.FromContext(c)

	var (
		courses []school.Course
		err     error
	)
	switch claims.Role {
	case school.RoleAdmin:
		courses, err = h.store().Courses(ctx)
	case school.RoleTeacher:
		var t school.Teacher
		if t, err = h.currentTeacher(c); err == nil {
			courses, err = h.store().CoursesByTeacher(ctx, t.ID)
		}
	case school.RoleStudent:
		var s school.Student
		if s, err = h.currentStudent(c); err == nil {
			courses, err = h.store().CoursesByStudent(ctx, s.ID)
		}
	}
	if err != nil {
		fail(c, err)
		return
	}
	if courses == nil {
		courses = []school.Course{}
	}
	c.JSON(http.StatusOK, courses)
}

type courseRequest struct {
	Name       string  `json:"name" binding:"required"`
	TeacherID  int64   `json:"teacherId" binding:"required"`
	StudentIDs []int64 `json:"studentIds"`
}

func (h *Handler) createCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	course, err := h.svc.CreateCourse(c.Request.Context(), school.Course{
		Name: req.Name, TeacherID: req.TeacherID, StudentIDs: req.StudentIDs,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *Handler) getCourse(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	course, err := h.store().CourseByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *Handler) updateCourse(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	course, err := h.svc.UpdateCourse(c.Request.Context(), school.Course{
		ID: id, Name: req.Name, TeacherID: req.TeacherID, StudentIDs: req.StudentIDs,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *Handler) deleteCourse(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store().DeleteCourse(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteAllCourses(c *gin.Context) {
	if err := h.store().DeleteAllCourses(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// enrollStudent adds a student to a course. Teachers and admins name
// the student in the body; a student may only enroll themselves.
func (h *Handler) enrollStudent(c *gin.Context) {
	courseID, ok := idParam(c)
	if !ok {
		return
	}
	claims := auth.FromContext(c)

	var studentID int64
	switch claims.Role {
	case school.RoleStudent:
		s, err := h.currentStudent(c)
		if err != nil {
			fail(c, err)
			return
		}
		studentID = s.ID
	case school.RoleTeacher, school.RoleAdmin:
		var req struct {
			StudentID int64 `json:"student_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "student_id is required"})
			return
		}
		studentID = req.StudentID
	default:
		c.JSON(http.StatusForbidden, gin.H{"detail": "Not allowed"})
		return
	}

	if err := h.svc.EnrollStudent(c.Request.Context(), courseID, studentID); err != nil {
		fail(c, err)
		return
	}
	course, err := h.store().CourseByID(c.Request.Context(), courseID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}
