package db

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/models"
)

const assignmentColumns = `
	id, name, directory_path, master_notebook_path, grader_question_feedback,
	max_attempts, created_date, available_date, due_date, last_modified_date,
	is_published`

// AssignmentRepo accesses assignment rows.
type AssignmentRepo struct {
	db *sqlx.DB
}

// NewAssignmentRepo creates an AssignmentRepo.
func NewAssignmentRepo(db *sqlx.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// Create inserts an assignment row. The ID is externally assigned by the LMS
// and inserted as-is.
func (r *AssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO assignment (
			id, name, directory_path, master_notebook_path,
			grader_question_feedback, max_attempts,
			available_date, due_date, is_published
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_date, last_modified_date
	`,
		a.ID, a.Name, a.DirectoryPath, a.MasterNotebookPath,
		a.GraderQuestionFeedback, a.MaxAttempts,
		a.AvailableDate, a.DueDate, a.IsPublished,
	).Scan(&a.CreatedDate, &a.LastModifiedDate)
	if err != nil {
		return errors.Wrap(err, "failed to insert assignment")
	}
	return nil
}

// GetByID returns the assignment with the given ID.
func (r *AssignmentRepo) GetByID(ctx context.Context, id int) (*models.Assignment, error) {
	var a models.Assignment
	err := r.db.GetContext(ctx, &a, `SELECT`+assignmentColumns+` FROM assignment WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("assignment %d not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query assignment")
	}
	return &a, nil
}

// GetByName returns the assignment with the given (unique) name.
func (r *AssignmentRepo) GetByName(ctx context.Context, name string) (*models.Assignment, error) {
	var a models.Assignment
	err := r.db.GetContext(ctx, &a, `SELECT`+assignmentColumns+` FROM assignment WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("assignment %q not found", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query assignment")
	}
	return &a, nil
}

// List returns all assignments.
func (r *AssignmentRepo) List(ctx context.Context) ([]models.Assignment, error) {
	var as []models.Assignment
	err := r.db.SelectContext(ctx, &as, `SELECT`+assignmentColumns+` FROM assignment ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list assignments")
	}
	return as, nil
}

// Update rewrites the mutable fields of an assignment and bumps its
// last-modified timestamp.
func (r *AssignmentRepo) Update(ctx context.Context, a *models.Assignment) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE assignment SET
			name = $2,
			directory_path = $3,
			master_notebook_path = $4,
			grader_question_feedback = $5,
			max_attempts = $6,
			available_date = $7,
			due_date = $8,
			is_published = $9,
			last_modified_date = current_timestamp
		WHERE id = $1
		RETURNING last_modified_date
	`,
		a.ID, a.Name, a.DirectoryPath, a.MasterNotebookPath,
		a.GraderQuestionFeedback, a.MaxAttempts,
		a.AvailableDate, a.DueDate, a.IsPublished,
	).Scan(&a.LastModifiedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFoundf("assignment %d not found", a.ID)
	}
	if err != nil {
		return errors.Wrap(err, "failed to update assignment")
	}
	return nil
}

// Delete removes an assignment row.
func (r *AssignmentRepo) Delete(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM assignment WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete assignment")
	}
	return nil
}
