package apiclient

import (
	"context"
	"errors"

	"aplus/internal/school"
)

// ErrNothingToMark means a roster submission had no new marks to send:
// every student was either unmarked or already recorded for the date.
var ErrNothingToMark = errors.New("no new attendance to submit")

// MarkingPlan is a prepared roster submission.
type MarkingPlan struct {
	// Payload holds the records worth sending.
	Payload []school.AttendanceRecord
	// Skipped holds student ids dropped because a record for the date
	// already exists server-side.
	Skipped []int64
}

// PlanMarks prepares a bulk submission from a teacher's marking state.
// Unmarked rows are left out; students the existing records already
// cover for the same date are skipped rather than overwritten. An empty
// payload yields ErrNothingToMark, pointing the caller at the edit flow.
func PlanMarks(marks, existing []school.AttendanceRecord) (MarkingPlan, error) {
	have := make(map[markKey]bool, len(existing))
	for _, rec := range existing {
		have[markKey{rec.StudentID, rec.CourseID, rec.Date}] = true
	}

	var plan MarkingPlan
	for _, rec := range marks {
		if rec.Status == "" || rec.Status == school.StatusUnmarked {
			continue
		}
		if have[markKey{rec.StudentID, rec.CourseID, rec.Date}] {
			plan.Skipped = append(plan.Skipped, rec.StudentID)
			continue
		}
		plan.Payload = append(plan.Payload, rec)
	}
	if len(plan.Payload) == 0 {
		return plan, ErrNothingToMark
	}
	return plan, nil
}

type markKey struct {
	studentID int64
	courseID  int64
	date      string
}

// SubmitMarks fetches the course's existing records, plans the
// submission and sends it. The server repeats the already-marked check
// under its unique key, so a concurrent submission cannot double-mark.
func (c *Client) SubmitMarks(ctx context.Context, courseID int64, marks []school.AttendanceRecord) (school.BulkMarkResult, error) {
	existing, err := c.AttendanceByCourse(ctx, courseID)
	if err != nil {
		return school.BulkMarkResult{}, err
	}
	plan, err := PlanMarks(marks, existing)
	if err != nil {
		return school.BulkMarkResult{Skipped: plan.Skipped}, err
	}
	res, err := c.BulkMark(ctx, plan.Payload)
	if err != nil {
		return res, err
	}
	res.Skipped = append(res.Skipped, plan.Skipped...)
	return res, nil
}
