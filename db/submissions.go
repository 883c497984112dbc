package db

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhelx/grader-core/models"
)

// SubmissionRepo accesses submission rows.
type SubmissionRepo struct {
	db *sqlx.DB
}

// NewSubmissionRepo creates a SubmissionRepo.
func NewSubmissionRepo(db *sqlx.DB) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

// Create inserts a submission row and fills in its generated fields.
func (r *SubmissionRepo) Create(ctx context.Context, s *models.Submission) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO submission (student_id, assignment_id, commit_id)
		VALUES ($1, $2, $3)
		RETURNING id, submission_time
	`, s.StudentID, s.AssignmentID, s.CommitID).Scan(&s.ID, &s.SubmissionTime)
	if err != nil {
		return errors.Wrap(err, "failed to insert submission")
	}
	return nil
}

// CountForStudentAssignment returns how many submissions the student has made
// for the assignment. Eligibility checks compare this against the
// assignment's max attempts.
func (r *SubmissionRepo) CountForStudentAssignment(
	ctx context.Context, studentID, assignmentID int,
) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM submission WHERE student_id = $1 AND assignment_id = $2
	`, studentID, assignmentID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count submissions")
	}
	return count, nil
}

// ListForStudentAssignment returns the student's submissions for an
// assignment, newest first.
func (r *SubmissionRepo) ListForStudentAssignment(
	ctx context.Context, studentID, assignmentID int,
) ([]models.Submission, error) {
	var subs []models.Submission
	err := r.db.SelectContext(ctx, &subs, `
		SELECT id, student_id, assignment_id, commit_id, submission_time
		FROM submission
		WHERE student_id = $1 AND assignment_id = $2
		ORDER BY submission_time DESC
	`, studentID, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list submissions")
	}
	return subs, nil
}
