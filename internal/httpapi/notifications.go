package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aplus/internal/auth"
	"aplus/internal/queue"
	"aplus/internal/school"
)

func (h *Handler) listNotifications(c *gin.Context) {
	items, err := h.store().Notifications(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []school.Notification{}
	}
	c.JSON(http.StatusOK, items)
}

// createNotification records a broadcast and hands it to the worker for
// mail fan-out.
func (h *Handler) createNotification(c *gin.Context) {
	var req struct {
		Title   string `json:"title" binding:"required"`
		Message string `json:"message" binding:"required"`
		Role    string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	n, err := h.svc.Broadcast(c.Request.Context(), school.Notification{
		Title: req.Title, Message: req.Message, Role: req.Role,
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c.Request.Context(), queue.Message{Type: queue.TypeNotification, ID: n.ID})
	c.JSON(http.StatusCreated, n)
}

// myNotifications lists broadcasts targeted at the caller's role or at everyone.
func (h *Handler) myNotifications(c *gin.Context) {
	claims := auth.FromContext(c)
	items, err := h.store().NotificationsForRole(c.Request.Context(), claims.Role)
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []school.Notification{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) deleteNotification(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store().DeleteNotification(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
