package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aplus/internal/auth"
	"aplus/internal/metrics"
	"aplus/internal/queue"
	"aplus/internal/school"
)

// listAttendance is role-scoped: admin sees everything, a teacher the
// records of their courses, a student only their own.
func (h *Handler) listAttendance(c *gin.Context) {
	ctx := c.Request.Context()
	claims := auth.FromContext(c)

	var (
		records []school.AttendanceRecord
		err     error
	)
	switch claims.Role {
	case school.RoleAdmin:
		records, err = h.store().Records(ctx)
	case school.RoleTeacher:
		var t school.Teacher
		if t, err = h.currentTeacher(c); err == nil {
			records, err = h.store().RecordsByTeacher(ctx, t.ID)
		}
	case school.RoleStudent:
		var s school.Student
		if s, err = h.currentStudent(c); err == nil {
			records, err = h.store().RecordsByStudent(ctx, s.ID)
		}
	}
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []school.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, records)
}

type attendanceRequest struct {
	StudentID int64  `json:"studentId" binding:"required"`
	CourseID  int64  `json:"courseId" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

func (r attendanceRequest) record() school.AttendanceRecord {
	return school.AttendanceRecord{
		StudentID: r.StudentID, CourseID: r.CourseID, Date: r.Date, Status: r.Status,
	}
}

// markAttendance records a single mark; same-key resubmission overwrites
// the status instead of duplicating.
func (h *Handler) markAttendance(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	rec, err := h.svc.Mark(c.Request.Context(), req.record())
	if err != nil {
		fail(c, err)
		return
	}
	metrics.AttendanceMarks.WithLabelValues(rec.Status).Inc()
	h.publish(c.Request.Context(), queue.Message{Type: queue.TypeSummary, ID: rec.CourseID})
	c.JSON(http.StatusCreated, rec)
}

// bulkMarkAttendance processes a whole roster submission. Already-marked
// students are skipped, never overwritten; an all-skipped submission is
// rejected so the caller uses the edit flow instead.
func (h *Handler) bulkMarkAttendance(c *gin.Context) {
	var reqs []attendanceRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	recs := make([]school.AttendanceRecord, len(reqs))
	for i, r := range reqs {
		recs[i] = r.record()
	}

	res, err := h.svc.BulkMark(c.Request.Context(), recs)
	if err != nil {
		fail(c, err)
		return
	}
	seen := map[int64]bool{}
	for _, rec := range res.Created {
		metrics.AttendanceMarks.WithLabelValues(rec.Status).Inc()
		if !seen[rec.CourseID] {
			seen[rec.CourseID] = true
			h.publish(c.Request.Context(), queue.Message{Type: queue.TypeSummary, ID: rec.CourseID})
		}
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) updateAttendance(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
		Date   string `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	rec, err := h.svc.UpdateRecord(c.Request.Context(), school.AttendanceRecord{
		ID: id, Status: req.Status, Date: req.Date,
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c.Request.Context(), queue.Message{Type: queue.TypeSummary, ID: rec.CourseID})
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) deleteAttendance(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	rec, err := h.store().RecordByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.store().DeleteRecord(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.publish(c.Request.Context(), queue.Message{Type: queue.TypeSummary, ID: rec.CourseID})
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteAllAttendance(c *gin.Context) {
	if err := h.store().DeleteAllRecords(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// attendanceByCourse lists one course's records.
func (h *Handler) attendanceByCourse(c *gin.Context) {
	courseID, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := h.store().CourseByID(c.Request.Context(), courseID); err != nil {
		fail(c, err)
		return
	}
	records, err := h.store().RecordsByCourse(c.Request.Context(), courseID)
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []school.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// attendanceSummary aggregates counts per course. With ?course_id= it
// returns one course; otherwise every course visible to the caller.
// Summaries are served from the Redis cache the worker maintains and
// recomputed on a miss.
func (h *Handler) attendanceSummary(c *gin.Context) {
	ctx := c.Request.Context()
	claims := auth.FromContext(c)

	var courseIDs []int64
	if v := c.Query("course_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid course_id"})
			return
		}
		courseIDs = []int64{id}
	} else {
		var (
			courses []school.Course
			err     error
		)
		if claims.Role == school.RoleTeacher {
			var t school.Teacher
			if t, err = h.currentTeacher(c); err == nil {
				courses, err = h.store().CoursesByTeacher(ctx, t.ID)
			}
		} else {
			courses, err = h.store().Courses(ctx)
		}
		if err != nil {
			fail(c, err)
			return
		}
		for _, course := range courses {
			courseIDs = append(courseIDs, course.ID)
		}
	}

	out := make([]school.CourseSummary, 0, len(courseIDs))
	for _, id := range courseIDs {
		sum, ok := h.cachedSummary(c, id)
		if !ok {
			var err error
			if sum, err = h.store().Summary(ctx, id); err != nil {
				fail(c, err)
				return
			}
			h.storeSummary(c, sum)
		}
		out = append(out, sum)
	}
	c.JSON(http.StatusOK, out)
}

func summaryKey(courseID int64) string {
	return fmt.Sprintf("aplus:summary:course:%d", courseID)
}

func (h *Handler) cachedSummary(c *gin.Context, courseID int64) (school.CourseSummary, bool) {
	if h.cache == nil || h.cache.Client == nil {
		return school.CourseSummary{}, false
	}
	data, err := h.cache.Client.Get(c.Request.Context(), summaryKey(courseID)).Bytes()
	if err != nil {
		return school.CourseSummary{}, false
	}
	var sum school.CourseSummary
	if json.Unmarshal(data, &sum) != nil {
		return school.CourseSummary{}, false
	}
	return sum, true
}

func (h *Handler) storeSummary(c *gin.Context, sum school.CourseSummary) {
	if h.cache == nil || h.cache.Client == nil {
		return
	}
	if data, err := json.Marshal(sum); err == nil {
		h.cache.Client.Set(c.Request.Context(), summaryKey(sum.CourseID), data, h.cfg.SummaryCacheTTL)
	}
}
