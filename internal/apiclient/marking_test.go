package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aplus/internal/school"
)

func TestPlanMarks(t *testing.T) {
	marks := []school.AttendanceRecord{
		{StudentID: 1, CourseID: 7, Date: "2026-01-12", Status: school.StatusPresent},
		{StudentID: 2, CourseID: 7, Date: "2026-01-12", Status: school.StatusUnmarked},
		{StudentID: 3, CourseID: 7, Date: "2026-01-12", Status: school.StatusAbsent},
		{StudentID: 4, CourseID: 7, Date: "2026-01-12", Status: ""},
	}
	existing := []school.AttendanceRecord{
		{StudentID: 3, CourseID: 7, Date: "2026-01-12", Status: school.StatusPresent},
		{StudentID: 1, CourseID: 7, Date: "2026-01-11", Status: school.StatusPresent}, // other day, no conflict
	}

	plan, err := PlanMarks(marks, existing)
	require.NoError(t, err)
	require.Len(t, plan.Payload, 1)
	assert.EqualValues(t, 1, plan.Payload[0].StudentID)
	assert.Equal(t, []int64{3}, plan.Skipped)
}

func TestPlanMarksNothingToSend(t *testing.T) {
	marks := []school.AttendanceRecord{
		{StudentID: 1, CourseID: 7, Date: "2026-01-12", Status: school.StatusUnmarked},
		{StudentID: 2, CourseID: 7, Date: "2026-01-12", Status: school.StatusPresent},
	}
	existing := []school.AttendanceRecord{
		{StudentID: 2, CourseID: 7, Date: "2026-01-12", Status: school.StatusLate},
	}

	plan, err := PlanMarks(marks, existing)
	assert.ErrorIs(t, err, ErrNothingToMark)
	assert.Empty(t, plan.Payload)
	assert.Equal(t, []int64{2}, plan.Skipped)

	_, err = PlanMarks(nil, nil)
	assert.ErrorIs(t, err, ErrNothingToMark)
}

func TestSubmitMarks(t *testing.T) {
	var sent []school.AttendanceRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/attendance/by-course/7/":
			json.NewEncoder(w).Encode([]school.AttendanceRecord{
				{StudentID: 2, CourseID: 7, Date: "2026-01-12", Status: school.StatusPresent},
			})
		case "/api/attendance/bulk/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(school.BulkMarkResult{Created: sent})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newClient(srv)
	require.NoError(t, c.Creds.Save(Credentials{Access: "a", Refresh: "r"}))

	res, err := c.SubmitMarks(context.Background(), 7, []school.AttendanceRecord{
		{StudentID: 1, CourseID: 7, Date: "2026-01-12", Status: school.StatusPresent},
		{StudentID: 2, CourseID: 7, Date: "2026-01-12", Status: school.StatusPresent},
	})
	require.NoError(t, err)

	require.Len(t, sent, 1, "already-marked students stay out of the payload")
	assert.EqualValues(t, 1, sent[0].StudentID)
	assert.Equal(t, []int64{2}, res.Skipped)
}
