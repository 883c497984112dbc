package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhelx/grader-core/models"
)

// ExtraTimeRepo accesses per (student, assignment) scheduling overrides.
type ExtraTimeRepo struct {
	db *sqlx.DB
}

// NewExtraTimeRepo creates an ExtraTimeRepo.
func NewExtraTimeRepo(db *sqlx.DB) *ExtraTimeRepo {
	return &ExtraTimeRepo{db: db}
}

// GetForStudentAssignment returns the override for the pair, or nil when none
// exists (most students have none; nil is the normal case, not an error).
func (r *ExtraTimeRepo) GetForStudentAssignment(
	ctx context.Context, studentID, assignmentID int,
) (*models.ExtraTime, error) {
	var et models.ExtraTime
	err := r.db.GetContext(ctx, &et, `
		SELECT id, student_id, assignment_id, deferred_time, extra_time
		FROM extra_time
		WHERE student_id = $1 AND assignment_id = $2
	`, studentID, assignmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query extra time")
	}
	return &et, nil
}

// Upsert creates or replaces the override for the pair.
func (r *ExtraTimeRepo) Upsert(ctx context.Context, et *models.ExtraTime) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO extra_time (student_id, assignment_id, deferred_time, extra_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, assignment_id)
		DO UPDATE SET deferred_time = EXCLUDED.deferred_time, extra_time = EXCLUDED.extra_time
		RETURNING id
	`, et.StudentID, et.AssignmentID, et.DeferredTime, et.ExtraTime).Scan(&et.ID)
	if err != nil {
		return errors.Wrap(err, "failed to upsert extra time")
	}
	return nil
}

// EarliestDeferral returns the smallest deferral granted for an assignment,
// zero when no overrides exist. Used to compute the earliest time the
// assignment is available to anyone.
func (r *ExtraTimeRepo) EarliestDeferral(ctx context.Context, assignmentID int) (time.Duration, error) {
	var d time.Duration
	err := r.db.GetContext(ctx, &d, `
		SELECT COALESCE(MIN(deferred_time), 0) FROM extra_time WHERE assignment_id = $1
	`, assignmentID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to query earliest deferral")
	}
	return d, nil
}

// LatestExtension returns the largest extension granted for an assignment,
// zero when no overrides exist. Used to compute the latest time the
// assignment closes for anyone.
func (r *ExtraTimeRepo) LatestExtension(ctx context.Context, assignmentID int) (time.Duration, error) {
	var d time.Duration
	err := r.db.GetContext(ctx, &d, `
		SELECT COALESCE(MAX(extra_time), 0) FROM extra_time WHERE assignment_id = $1
	`, assignmentID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to query latest extension")
	}
	return d, nil
}
