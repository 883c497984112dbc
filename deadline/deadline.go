// Package deadline resolves what an assignment looks like to one student at
// one moment: the adjusted schedule after per-student overrides, the resulting
// status, and whether a submission is currently allowed.
package deadline

import (
	"time"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/models"
)

// Status is an assignment's lifecycle state for a particular student.
type Status string

const (
	StatusUnpublished Status = "unpublished"
	StatusNotYetOpen  Status = "not_yet_open"
	StatusOpen        Status = "open"
	StatusClosed      Status = "closed"
)

// Resolution is the fully adjusted view of an assignment for one student.
type Resolution struct {
	Status Status `json:"status"`
	// AdjustedAvailableDate is the assignment's available date shifted by the
	// student's deferral.
	AdjustedAvailableDate time.Time `json:"adjusted_available_date"`
	// AdjustedDueDate is the due date shifted by the student's deferral, their
	// per-assignment extension and their base extra time.
	AdjustedDueDate time.Time `json:"adjusted_due_date"`
	// IsDeferred reports whether the student opens later than the class.
	IsDeferred bool `json:"is_deferred"`
	// IsExtended reports whether the student closes later than the class.
	IsExtended bool `json:"is_extended"`
}

// AdjustedAvailableDate computes when the assignment opens for the student.
// An unset available date falls back to the course start.
func AdjustedAvailableDate(
	assignment *models.Assignment, course *models.Course, extraTime *models.ExtraTime,
) time.Time {
	available := course.StartAt
	if assignment.AvailableDate != nil {
		available = *assignment.AvailableDate
	}

	var deferred time.Duration
	if extraTime != nil {
		deferred = extraTime.DeferredTime
	}
	return available.Add(deferred)
}

// AdjustedDueDate computes when the assignment closes for the student. An
// unset due date falls back to the course start. A deferral pushes the due
// date along with the available date so the student keeps the full working
// window.
func AdjustedDueDate(
	assignment *models.Assignment, course *models.Course,
	student *models.User, extraTime *models.ExtraTime,
) time.Time {
	due := course.StartAt
	if assignment.DueDate != nil {
		due = *assignment.DueDate
	}

	var deferred, extra time.Duration
	if extraTime != nil {
		deferred = extraTime.DeferredTime
		extra = extraTime.ExtraTime
	}
	return due.Add(deferred + extra + student.BaseExtraTime)
}

// Resolve computes the assignment's status and adjusted schedule for a
// student at the given instant. The window is inclusive at open and at close:
// a submission exactly at the adjusted due date is still in time.
func Resolve(
	assignment *models.Assignment, course *models.Course,
	student *models.User, extraTime *models.ExtraTime, now time.Time,
) Resolution {
	available := AdjustedAvailableDate(assignment, course, extraTime)
	due := AdjustedDueDate(assignment, course, student, extraTime)

	res := Resolution{
		AdjustedAvailableDate: available,
		AdjustedDueDate:       due,
		IsDeferred:            assignment.AvailableDate != nil && !available.Equal(*assignment.AvailableDate),
		IsExtended:            assignment.DueDate != nil && !due.Equal(*assignment.DueDate),
	}

	switch {
	case !assignment.IsPublished:
		res.Status = StatusUnpublished
	case now.Before(available):
		res.Status = StatusNotYetOpen
	case now.After(due):
		res.Status = StatusClosed
	default:
		res.Status = StatusOpen
	}
	return res
}

// CanSubmit reports whether the student may submit now, given how many
// submissions they have already made. A non-nil error is always a coded
// validation error naming the first failed condition.
func CanSubmit(
	assignment *models.Assignment, course *models.Course,
	student *models.User, extraTime *models.ExtraTime,
	priorSubmissions int, now time.Time,
) error {
	if !assignment.IsCreated() {
		return apperrors.Validationf("assignment %q has not been scheduled", assignment.Name)
	}

	switch res := Resolve(assignment, course, student, extraTime, now); res.Status {
	case StatusUnpublished:
		return apperrors.Validationf("assignment %q is not published", assignment.Name)
	case StatusNotYetOpen:
		return apperrors.Validationf("assignment %q is not open yet", assignment.Name)
	case StatusClosed:
		return apperrors.Validationf("assignment %q is closed", assignment.Name)
	case StatusOpen:
	}

	if assignment.MaxAttempts != nil && priorSubmissions >= *assignment.MaxAttempts {
		return apperrors.Validationf(
			"no attempts remaining for assignment %q (%d of %d used)",
			assignment.Name, priorSubmissions, *assignment.MaxAttempts,
		)
	}
	return nil
}
