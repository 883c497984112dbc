package db

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/models"
)

// CourseRepo accesses the singleton course row.
type CourseRepo struct {
	db *sqlx.DB
}

// NewCourseRepo creates a CourseRepo.
func NewCourseRepo(db *sqlx.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

// Get returns the course row. Zero rows and more than one row are distinct
// misconfiguration errors, not normal states, so Get selects up to two rows
// and inspects the count.
func (r *CourseRepo) Get(ctx context.Context) (*models.Course, error) {
	var courses []models.Course
	err := r.db.SelectContext(ctx, &courses, `
		SELECT id, name, master_remote_url, start_at, end_at
		FROM course
		LIMIT 2
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query course")
	}

	switch len(courses) {
	case 0:
		return nil, apperrors.NotFoundf("no course exists")
	case 1:
		return &courses[0], nil
	default:
		return nil, errors.New("multiple course rows exist; the deployment is misconfigured")
	}
}

// Create inserts the course row and fills in its generated ID.
func (r *CourseRepo) Create(ctx context.Context, course *models.Course) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO course (name, master_remote_url, start_at, end_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, course.Name, course.MasterRemoteURL, course.StartAt, course.EndAt).Scan(&course.ID)
	if err != nil {
		return errors.Wrap(err, "failed to insert course")
	}
	return nil
}

// SetMasterRemoteURL records the master repository's remote URL once
// provisioning has produced it.
func (r *CourseRepo) SetMasterRemoteURL(ctx context.Context, id int, url string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE course SET master_remote_url = $1 WHERE id = $2
	`, url, id)
	if err != nil {
		return errors.Wrap(err, "failed to update course master remote URL")
	}
	return nil
}

// UpdateName renames the course. External resource names are derived from the
// name at provisioning time and are not renamed here.
func (r *CourseRepo) UpdateName(ctx context.Context, id int, name string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE course SET name = $1 WHERE id = $2
	`, name, id)
	if err != nil {
		return errors.Wrap(err, "failed to update course name")
	}
	return nil
}

// Delete removes the course row. Only saga compensation calls this; course
// deletion is otherwise unsupported.
func (r *CourseRepo) Delete(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete course")
	}
	return nil
}
