package deadline

import (
	"context"
	"time"

	"github.com/eduhelx/grader-core/models"
)

// ExtraTimeStore is the slice of the extra-time repository the resolver needs.
type ExtraTimeStore interface {
	GetForStudentAssignment(ctx context.Context, studentID, assignmentID int) (*models.ExtraTime, error)
	EarliestDeferral(ctx context.Context, assignmentID int) (time.Duration, error)
	LatestExtension(ctx context.Context, assignmentID int) (time.Duration, error)
}

// SubmissionCounter counts a student's prior submissions for an assignment.
type SubmissionCounter interface {
	CountForStudentAssignment(ctx context.Context, studentID, assignmentID int) (int, error)
}

// Resolver answers schedule questions using stored overrides and submission
// counts.
type Resolver struct {
	extraTime   ExtraTimeStore
	submissions SubmissionCounter
}

// NewResolver creates a Resolver.
func NewResolver(extraTime ExtraTimeStore, submissions SubmissionCounter) *Resolver {
	return &Resolver{extraTime: extraTime, submissions: submissions}
}

// ResolveForStudent loads the student's override and resolves the assignment
// at the given instant.
func (r *Resolver) ResolveForStudent(
	ctx context.Context, assignment *models.Assignment, course *models.Course,
	student *models.User, now time.Time,
) (Resolution, error) {
	extraTime, err := r.extraTime.GetForStudentAssignment(ctx, student.ID, assignment.ID)
	if err != nil {
		return Resolution{}, err
	}
	return Resolve(assignment, course, student, extraTime, now), nil
}

// CanSubmit checks submission eligibility for the student at the given
// instant, including their remaining attempts.
func (r *Resolver) CanSubmit(
	ctx context.Context, assignment *models.Assignment, course *models.Course,
	student *models.User, now time.Time,
) error {
	extraTime, err := r.extraTime.GetForStudentAssignment(ctx, student.ID, assignment.ID)
	if err != nil {
		return err
	}
	count, err := r.submissions.CountForStudentAssignment(ctx, student.ID, assignment.ID)
	if err != nil {
		return err
	}
	return CanSubmit(assignment, course, student, extraTime, count, now)
}

// EarliestAvailableDate returns the earliest time the assignment opens for
// anyone, nil when the assignment has no available date.
func (r *Resolver) EarliestAvailableDate(
	ctx context.Context, assignment *models.Assignment,
) (*time.Time, error) {
	if assignment.AvailableDate == nil {
		return nil, nil
	}
	earliest, err := r.extraTime.EarliestDeferral(ctx, assignment.ID)
	if err != nil {
		return nil, err
	}
	t := assignment.AvailableDate.Add(earliest)
	return &t, nil
}

// LatestDueDate returns the latest time the assignment closes for anyone, nil
// when the assignment has no due date. Base extra time is per student and is
// not folded in here.
func (r *Resolver) LatestDueDate(
	ctx context.Context, assignment *models.Assignment,
) (*time.Time, error) {
	if assignment.DueDate == nil {
		return nil, nil
	}
	latest, err := r.extraTime.LatestExtension(ctx, assignment.ID)
	if err != nil {
		return nil, err
	}
	t := assignment.DueDate.Add(latest)
	return &t, nil
}
