package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aplus/internal/school"
)

// listFeedback returns the feedback left on the calling teacher's courses.
func (h *Handler) listFeedback(c *gin.Context) {
	t, err := h.currentTeacher(c)
	if err != nil {
		fail(c, err)
		return
	}
	items, err := h.store().FeedbackByTeacher(c.Request.Context(), t.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []school.Feedback{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) submitFeedback(c *gin.Context) {
	var req struct {
		CourseID int64  `json:"courseId" binding:"required"`
		Message  string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	s, err := h.currentStudent(c)
	if err != nil {
		fail(c, err)
		return
	}
	fb, err := h.svc.SubmitFeedback(c.Request.Context(), s.ID, req.CourseID, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

// myFeedback returns the calling student's feedback, minus hidden entries.
func (h *Handler) myFeedback(c *gin.Context) {
	s, err := h.currentStudent(c)
	if err != nil {
		fail(c, err)
		return
	}
	items, err := h.store().FeedbackByStudent(c.Request.Context(), s.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []school.Feedback{}
	}
	c.JSON(http.StatusOK, items)
}

// hideFeedback removes an entry from the author's own view. It stays
// visible to the course's teacher.
func (h *Handler) hideFeedback(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	s, err := h.currentStudent(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.store().HideFeedback(c.Request.Context(), id, s.ID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Feedback hidden"})
}

func (h *Handler) deleteFeedback(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store().DeleteFeedback(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
