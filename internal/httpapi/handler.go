package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aplus/internal/auth"
	"aplus/internal/config"
	"aplus/internal/queue"
	"aplus/internal/school"
	"aplus/internal/store"
)

// Handler carries every dependency the API routes need.
type Handler struct {
	svc   *school.Service
	q     queue.Queue
	cache *store.Redis // nil disables summary caching
	cfg   config.App
}

// New creates the handler set.
func New(svc *school.Service, q queue.Queue, cache *store.Redis, cfg config.App) *Handler {
	return &Handler{svc: svc, q: q, cache: cache, cfg: cfg}
}

func (h *Handler) store() school.Store { return h.svc.Store() }

// Register mounts the /api contract on the router. Paths keep their
// trailing slash; that is the wire contract clients are written against.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/login/", h.login)
	api.POST("/token/refresh/", h.refreshToken)
	api.POST("/reset-password/", h.resetPassword)

	authed := api.Group("", auth.RequireAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	authed.POST("/logout/", h.logout)

	admin := auth.RequireRole(school.RoleAdmin)
	staff := auth.RequireRole(school.RoleAdmin, school.RoleTeacher)
	teacher := auth.RequireRole(school.RoleTeacher)
	student := auth.RequireRole(school.RoleStudent)

	authed.GET("/students/", h.listStudents)
	authed.POST("/students/", staff, h.createStudent)
	authed.GET("/students/my-courses/", student, h.myCourses)
	authed.DELETE("/students/all/", admin, h.deleteAllStudents)
	authed.GET("/students/:id/", h.getStudent)
	authed.PUT("/students/:id/", admin, h.updateStudent)
	authed.PATCH("/students/:id/", admin, h.patchStudent)
	authed.DELETE("/students/:id/", admin, h.deleteStudent)

	authed.GET("/teachers/", h.listTeachers)
	authed.POST("/teachers/", admin, h.createTeacher)
	authed.GET("/teachers/me/", teacher, h.myTeacherProfile)
	authed.DELETE("/teachers/all/", admin, h.deleteAllTeachers)
	authed.GET("/teachers/:id/", h.getTeacher)
	authed.PUT("/teachers/:id/", admin, h.updateTeacher)
	authed.PATCH("/teachers/:id/", admin, h.patchTeacher)
	authed.DELETE("/teachers/:id/", admin, h.deleteTeacher)

	authed.GET("/courses/", h.listCourses)
	authed.POST("/courses/", admin, h.createCourse)
	authed.DELETE("/courses/all/", admin, h.deleteAllCourses)
	authed.GET("/courses/:id/", h.getCourse)
	authed.PUT("/courses/:id/", admin, h.updateCourse)
	authed.DELETE("/courses/:id/", admin, h.deleteCourse)
	authed.POST("/courses/:id/enroll-student/", h.enrollStudent)

	authed.GET("/attendance/", h.listAttendance)
	authed.POST("/attendance/", staff, h.markAttendance)
	authed.POST("/attendance/bulk/", staff, h.bulkMarkAttendance)
	authed.DELETE("/attendance/all/", admin, h.deleteAllAttendance)
	authed.GET("/attendance/summary/", staff, h.attendanceSummary)
	authed.GET("/attendance/by-course/:id/", staff, h.attendanceByCourse)
	authed.PUT("/attendance/:id/", staff, h.updateAttendance)
	authed.PATCH("/attendance/:id/", staff, h.updateAttendance)
	authed.DELETE("/attendance/:id/", staff, h.deleteAttendance)

	authed.GET("/feedback/", teacher, h.listFeedback)
	authed.POST("/feedback/", student, h.submitFeedback)
	authed.GET("/feedback/my/", student, h.myFeedback)
	authed.POST("/feedback/:id/hide/", student, h.hideFeedback)
	authed.DELETE("/feedback/:id/", teacher, h.deleteFeedback)

	authed.GET("/notifications/", admin, h.listNotifications)
	authed.POST("/notifications/", admin, h.createNotification)
	authed.GET("/notifications/my/", h.myNotifications)
	authed.DELETE("/notifications/:id/", admin, h.deleteNotification)

	authed.DELETE("/users/all/", admin, h.deleteAllUsers)
}

// fail maps domain errors onto HTTP statuses with a DRF-style detail body.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, school.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	case errors.Is(err, school.ErrDuplicateEmail),
		errors.Is(err, school.ErrInvalidStatus),
		errors.Is(err, school.ErrInvalidDate),
		errors.Is(err, school.ErrNotEnrolled),
		errors.Is(err, school.ErrDuplicateMark),
		errors.Is(err, school.ErrNothingToMark),
		errors.Is(err, school.ErrBadCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
	}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid id"})
		return 0, false
	}
	return id, true
}

// currentStudent resolves the calling student's profile from the token.
func (h *Handler) currentStudent(c *gin.Context) (school.Student, error) {
	claims := auth.FromContext(c)
	return h.store().StudentByUserID(c.Request.Context(), claims.UserID)
}

// currentTeacher resolves the calling teacher's profile from the token.
func (h *Handler) currentTeacher(c *gin.Context) (school.Teacher, error) {
	claims := auth.FromContext(c)
	return h.store().TeacherByUserID(c.Request.Context(), claims.UserID)
}

// publish is fire-and-forget; a down queue never fails the request.
func (h *Handler) publish(ctx context.Context, msg queue.Message) {
	if h.q == nil {
		return
	}
	if err := h.q.Publish(ctx, msg); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}
