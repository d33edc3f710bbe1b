package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exported at /metrics alongside the default collectors.
var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aplus_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "code"})

	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aplus_attendance_marks_total",
		Help: "Attendance records written, by status.",
	}, []string{"status"})

	TokenRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aplus_token_refreshes_total",
		Help: "Successful refresh-token rotations.",
	})

	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aplus_notifications_sent_total",
		Help: "Notification emails fanned out by the worker.",
	})
)
