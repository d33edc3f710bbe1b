package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aplus/internal/school"
)

type teacherRequest struct {
	Name  string `json:"name" binding:"required"`
	Dept  string `json:"dept"`
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) listTeachers(c *gin.Context) {
	teachers, err := h.store().Teachers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if teachers == nil {
		teachers = []school.Teacher{}
	}
	c.JSON(http.StatusOK, teachers)
}

func (h *Handler) createTeacher(c *gin.Context) {
	var req teacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	t, err := h.svc.CreateTeacher(c.Request.Context(), req.Name, req.Dept, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) getTeacher(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	t, err := h.store().TeacherByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// myTeacherProfile returns the profile owned by the calling teacher.
func (h *Handler) myTeacherProfile(c *gin.Context) {
	t, err := h.currentTeacher(c)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) updateTeacher(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req teacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	t, err := h.store().UpdateTeacher(c.Request.Context(), school.Teacher{
		ID: id, Name: req.Name, Dept: req.Dept, Email: req.Email,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) patchTeacher(c *gin.Context) {
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
	cur, err := h.store().TeacherByID(c.Request.Context(), id)
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
	t, err := h.store().UpdateTeacher(c.Request.Context(), cur)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) deleteTeacher(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store().DeleteTeacher(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteAllTeachers(c *gin.Context) {
	if err := h.store().DeleteAllTeachers(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
