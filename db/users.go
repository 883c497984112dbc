package db

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/models"
)

const userColumns = `
	id, onyen, first_name, last_name, email, role, base_extra_time`

// UserRepo accesses user rows. Students and instructors share one table,
// discriminated by the role column.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo creates a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user row and fills in its generated ID.
func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO app_user (onyen, first_name, last_name, email, role, base_extra_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, u.Onyen, u.FirstName, u.LastName, u.Email, u.Role, u.BaseExtraTime).Scan(&u.ID)
	if err != nil {
		return errors.Wrap(err, "failed to insert user")
	}
	return nil
}

// GetByOnyen returns the user with the given login ID.
func (r *UserRepo) GetByOnyen(ctx context.Context, onyen string) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT`+userColumns+` FROM app_user WHERE onyen = $1`, onyen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("user %q not found", onyen)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query user")
	}
	return &u, nil
}

// GetByEmail returns the user with the given email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT`+userColumns+` FROM app_user WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("user with email %q not found", email)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query user")
	}
	return &u, nil
}

// ListByRole returns every user carrying the given role.
func (r *UserRepo) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT`+userColumns+` FROM app_user WHERE role = $1 ORDER BY onyen`, role)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	return users, nil
}

// Delete removes a user row by onyen.
func (r *UserRepo) Delete(ctx context.Context, onyen string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM app_user WHERE onyen = $1`, onyen)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}
	return nil
}

// AutoPasswordRepo accesses the auxiliary authentication table holding salted
// hashes of autogenerated passwords.
type AutoPasswordRepo struct {
	db *sqlx.DB
}

// NewAutoPasswordRepo creates an AutoPasswordRepo.
func NewAutoPasswordRepo(db *sqlx.DB) *AutoPasswordRepo {
	return &AutoPasswordRepo{db: db}
}

// Create inserts the hash row for a user.
func (r *AutoPasswordRepo) Create(ctx context.Context, onyen, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auto_password_auth (onyen, autogen_password_hash)
		VALUES ($1, $2)
	`, onyen, passwordHash)
	if err != nil {
		return errors.Wrap(err, "failed to insert auto password auth")
	}
	return nil
}

// Get returns the hash row for a user.
func (r *AutoPasswordRepo) Get(ctx context.Context, onyen string) (*models.AutoPasswordAuth, error) {
	var a models.AutoPasswordAuth
	err := r.db.GetContext(ctx, &a, `
		SELECT onyen, autogen_password_hash FROM auto_password_auth WHERE onyen = $1
	`, onyen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("no auto password auth for %q", onyen)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query auto password auth")
	}
	return &a, nil
}

// Delete removes the hash row for a user.
func (r *AutoPasswordRepo) Delete(ctx context.Context, onyen string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auto_password_auth WHERE onyen = $1`, onyen)
	if err != nil {
		return errors.Wrap(err, "failed to delete auto password auth")
	}
	return nil
}
