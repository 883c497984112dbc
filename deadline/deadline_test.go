package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/models"
)

var testStart = time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

func day(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func timePtr(t time.Time) *time.Time { return &t }

func testCourse() *models.Course {
	return &models.Course{
		ID:      1,
		Name:    "CS 101",
		StartAt: testStart,
		EndAt:   testStart.AddDate(0, 4, 0),
	}
}

func testAssignment() *models.Assignment {
	return &models.Assignment{
		ID:            7,
		Name:          "hw1",
		DirectoryPath: "hw1",
		AvailableDate: timePtr(testStart),
		DueDate:       timePtr(testStart.Add(day(10))),
		IsPublished:   true,
	}
}

func TestAdjustedDatesWithOverrides(t *testing.T) {
	assignment := testAssignment()
	course := testCourse()
	student := &models.User{ID: 3, Role: models.RoleStudent}
	extraTime := &models.ExtraTime{
		StudentID:    3,
		AssignmentID: 7,
		DeferredTime: day(1),
	}

	// Deferring by a day shifts both ends of the window: available at T+1d,
	// due at T+11d.
	available := AdjustedAvailableDate(assignment, course, extraTime)
	assert.True(t, available.Equal(testStart.Add(day(1))))

	due := AdjustedDueDate(assignment, course, student, extraTime)
	assert.True(t, due.Equal(testStart.Add(day(11))))
}

func TestAdjustedDueDateStacksAllExtensions(t *testing.T) {
	assignment := testAssignment()
	course := testCourse()
	student := &models.User{ID: 3, Role: models.RoleStudent, BaseExtraTime: day(2)}
	extraTime := &models.ExtraTime{DeferredTime: day(1), ExtraTime: day(3)}

	// due + deferred + extra + base = T+10d + 1d + 3d + 2d.
	due := AdjustedDueDate(assignment, course, student, extraTime)
	assert.True(t, due.Equal(testStart.Add(day(16))))
}

func TestAdjustedDatesFallBackToCourseStart(t *testing.T) {
	assignment := testAssignment()
	assignment.AvailableDate = nil
	assignment.DueDate = nil
	course := testCourse()
	student := &models.User{Role: models.RoleStudent}

	assert.True(t, AdjustedAvailableDate(assignment, course, nil).Equal(testStart))
	assert.True(t, AdjustedDueDate(assignment, course, student, nil).Equal(testStart))
}

func TestResolveStatuses(t *testing.T) {
	course := testCourse()
	student := &models.User{Role: models.RoleStudent}

	tests := []struct {
		name      string
		published bool
		now       time.Time
		want      Status
	}{
		{"unpublished", false, testStart.Add(day(5)), StatusUnpublished},
		{"before open", true, testStart.Add(-time.Hour), StatusNotYetOpen},
		{"open", true, testStart.Add(day(5)), StatusOpen},
		{"exactly at due", true, testStart.Add(day(10)), StatusOpen},
		{"after due", true, testStart.Add(day(10)).Add(time.Second), StatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assignment := testAssignment()
			assignment.IsPublished = tt.published

			res := Resolve(assignment, course, student, nil, tt.now)
			assert.Equal(t, tt.want, res.Status)
		})
	}
}

func TestResolveDeferredAndExtendedFlags(t *testing.T) {
	assignment := testAssignment()
	course := testCourse()
	student := &models.User{Role: models.RoleStudent}

	res := Resolve(assignment, course, student, nil, testStart)
	assert.False(t, res.IsDeferred)
	assert.False(t, res.IsExtended)

	res = Resolve(assignment, course, student,
		&models.ExtraTime{DeferredTime: day(1)}, testStart)
	assert.True(t, res.IsDeferred)
	assert.True(t, res.IsExtended) // the deferral moves the due date too
}

func TestCanSubmitAttemptBoundary(t *testing.T) {
	assignment := testAssignment()
	maxAttempts := 2
	assignment.MaxAttempts = &maxAttempts
	course := testCourse()
	student := &models.User{ID: 3, Role: models.RoleStudent}
	now := testStart.Add(day(5))

	// One prior submission of two allowed: still eligible.
	require.NoError(t, CanSubmit(assignment, course, student, nil, 1, now))

	// At the limit: rejected.
	err := CanSubmit(assignment, course, student, nil, 2, now)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCanSubmitRequiresScheduledAssignment(t *testing.T) {
	assignment := testAssignment()
	assignment.DueDate = nil
	course := testCourse()
	student := &models.User{Role: models.RoleStudent}

	err := CanSubmit(assignment, course, student, nil, 0, testStart)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCanSubmitOutsideWindow(t *testing.T) {
	assignment := testAssignment()
	course := testCourse()
	student := &models.User{Role: models.RoleStudent}

	err := CanSubmit(assignment, course, student, nil, 0, testStart.Add(-time.Hour))
	assert.True(t, apperrors.IsValidation(err))

	err = CanSubmit(assignment, course, student, nil, 0, testStart.Add(day(30)))
	assert.True(t, apperrors.IsValidation(err))

	// A deferred student is still closed out at their own adjusted due date,
	// not the class one.
	extraTime := &models.ExtraTime{DeferredTime: day(1)}
	assert.NoError(t, CanSubmit(assignment, course, student, extraTime, 0, testStart.Add(day(11))))
}

func TestCanSubmitUnpublished(t *testing.T) {
	assignment := testAssignment()
	assignment.IsPublished = false
	course := testCourse()
	student := &models.User{Role: models.RoleStudent}

	err := CanSubmit(assignment, course, student, nil, 0, testStart.Add(day(5)))
	assert.True(t, apperrors.IsValidation(err))
}
