package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aplus/internal/auth"
	"aplus/internal/school"
)

type studentRequest struct {
	Name  string `json:"name" binding:"required"`
	Dept  string `json:"dept"`
	Email string `json:"email" binding:"required,email"`
}

// listStudents is role-scoped: staff see everyone, a student sees only
// their own profile.
func (h *Handler) listStudents(c *gin.Context) {
	claims := auth.FromContext(c)
	if claims.Role == school.RoleStudent {
		s, err := h.currentStudent(c)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, []school.Student{s})
		return
	}
	students, err := h.store().Students(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if students == nil {
		students = []school.Student{}
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) createStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	s, err := h.svc.CreateStudent(c.Request.Context(), req.Name, req.Dept, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) getStudent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	s, err := h.store().StudentByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) updateStudent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	s, err := h.store().UpdateStudent(c.Request.Context(), school.Student{
		ID: id, Name: req.Name, Dept: req.Dept, Email: req.Email,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// patchStudent overlays only the provided fields onto the stored profile.
func (h *Handler) patchStudent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Name  *string `json:"name"`
		Dept  *string `json:"dept"`
		Email *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	cur, err := h.store().StudentByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if req.Name != nil {
		cur.Name = *req.Name
	}
	if req.Dept != nil {
		cur.Dept = *req.Dept
	}
	if req.Email != nil {
		cur.Email = *req.Email
	}
	s, err := h.store().UpdateStudent(c.Request.Context(), cur)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) deleteStudent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store().DeleteStudent(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteAllStudents(c *gin.Context) {
	if err := h.store().DeleteAllStudents(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// myCourses lists the calling student's enrolled courses.
func (h *Handler) myCourses(c *gin.Context) {
	s, err := h.currentStudent(c)
	if err != nil {
		fail(c, err)
		return
	}
	courses, err := h.store().CoursesByStudent(c.Request.Context(), s.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if courses == nil {
		courses = []school.Course{}
	}
	c.JSON(http.StatusOK, courses)
}

// deleteAllUsers wipes every student and teacher, as the admin
// dashboard's "delete all users" action expects.
func (h *Handler) deleteAllUsers(c *gin.Context) {
	if err := h.store().DeleteAllProfiles(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
