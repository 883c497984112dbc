package provision

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/models"
	"github.com/eduhelx/grader-core/saga"
)

const (
	stepCreateUserRecord         saga.StepName = "create-user-record"
	stepCreateAutoPasswordRecord saga.StepName = "create-auto-password-record"
	stepCreateCredentialSecret   saga.StepName = "create-credential-secret"
	stepCreateGitAccount         saga.StepName = "create-git-account"
	stepAddToInstructorOrg       saga.StepName = "add-to-instructor-organization"

	stepDeleteCredentialSecret   saga.StepName = "delete-credential-secret"
	stepPurgeGitAccount          saga.StepName = "purge-git-account"
	stepDeleteAutoPasswordRecord saga.StepName = "delete-auto-password-record"
	stepDeleteUserRecord         saga.StepName = "delete-user-record"
)

// CreateUser provisions a course participant: the user row, an autogenerated
// password (hash in the database, plaintext in the secret store) and a Git
// account. Instructors are additionally added to the instructor organization.
//
// Uniqueness prechecks run before the saga so conflicts are rejected without
// touching any external system.
func (p *Provisioner) CreateUser(
	ctx context.Context, onyen, firstName, lastName, email string, role models.Role,
) (*models.User, error) {
	if onyen == "" || email == "" {
		return nil, apperrors.Validationf("onyen and email must not be empty")
	}
	if !role.Valid() {
		return nil, apperrors.Validationf("unknown role %q", role)
	}

	if _, err := p.users.GetByOnyen(ctx, onyen); err == nil {
		return nil, apperrors.Conflictf("user %q already exists", onyen)
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}
	if _, err := p.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflictf("a user with email %q already exists", email)
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	course, err := p.courses.Get(ctx)
	if err != nil {
		return nil, err
	}

	// The plaintext password lives only in closures and the secret store; step
	// outputs are persisted, so it must not appear there.
	password, err := GeneratePassword(autogenPasswordLength)
	if err != nil {
		return nil, err
	}
	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Onyen:     onyen,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Role:      role,
	}

	registry := saga.NewRegistry()
	builder := saga.NewPlanBuilder("create-user", registry)

	steps := []saga.Step{
		saga.NewStep(stepCreateUserRecord,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				if err := p.users.Create(ctx, user); err != nil {
					return nil, err
				}
				return user.ID, nil
			},
			func(ctx context.Context, _ saga.StepContext) error {
				return p.users.Delete(ctx, onyen)
			},
		),
		saga.NewStep(stepCreateAutoPasswordRecord,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				return nil, p.passwords.Create(ctx, onyen, passwordHash)
			},
			func(ctx context.Context, _ saga.StepContext) error {
				return p.passwords.Delete(ctx, onyen)
			},
		),
		saga.NewStep(stepCreateCredentialSecret,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				return nil, p.secrets.CreateCredentialSecret(ctx, course.Name, onyen, password, role)
			},
			func(ctx context.Context, _ saga.StepContext) error {
				return p.secrets.DeleteCredentialSecret(ctx, course.Name, onyen)
			},
		),
		saga.NewStep(stepCreateGitAccount,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				return nil, p.git.CreateUser(ctx, onyen, email, password)
			},
			func(ctx context.Context, _ saga.StepContext) error {
				// The account was created this saga and owns nothing worth
				// keeping, so purging is safe here.
				return p.git.DeleteUser(ctx, onyen, true)
			},
		),
	}

	switch role {
	case models.RoleInstructor:
		// Membership disappears with the account, so the org step needs no
		// compensation of its own.
		steps = append(steps, saga.NewStepWithNoOpUndo(stepAddToInstructorOrg,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				org := InstructorOrganizationName(course.Name)
				return nil, p.git.AddUserToOrganization(ctx, org, onyen)
			},
		))
	case models.RoleStudent, models.RoleAdmin:
	}

	for _, step := range steps {
		if err := builder.Append(step); err != nil {
			return nil, err
		}
	}
	plan, err := builder.Build()
	if err != nil {
		return nil, err
	}

	p.syslog.WithFields(logrus.Fields{"onyen": onyen, "role": role}).Info("creating user")
	if err := p.run(ctx, plan); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser deprovisions a course participant. The plaintext password is
// retrieved up front so the credential secret can be restored if a later step
// fails. The Git account purge is irreversible, so it runs as the last
// external step; the database rows go only after it has succeeded.
func (p *Provisioner) DeleteUser(ctx context.Context, onyen string) error {
	user, err := p.users.GetByOnyen(ctx, onyen)
	if err != nil {
		return err
	}
	course, err := p.courses.Get(ctx)
	if err != nil {
		return err
	}
	password, err := p.secrets.GetAutogenPassword(ctx, course.Name, onyen)
	if err != nil {
		return err
	}
	auth, err := p.passwords.Get(ctx, onyen)
	if err != nil {
		return err
	}

	registry := saga.NewRegistry()
	builder := saga.NewPlanBuilder("delete-user", registry)

	steps := []saga.Step{
		saga.NewStep(stepDeleteCredentialSecret,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				return nil, p.secrets.DeleteCredentialSecret(ctx, course.Name, onyen)
			},
			func(ctx context.Context, _ saga.StepContext) error {
				return p.secrets.CreateCredentialSecret(ctx, course.Name, onyen, password, user.Role)
			},
		),
		// Purging the Git account destroys everything it owns; nothing can
		// compensate it. Every reversible external effect comes before it and
		// the database cleanup after.
		saga.NewStepWithNoOpUndo(stepPurgeGitAccount,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				return nil, p.git.DeleteUser(ctx, onyen, true)
			},
		),
		saga.NewStep(stepDeleteAutoPasswordRecord,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				return nil, p.passwords.Delete(ctx, onyen)
			},
			func(ctx context.Context, _ saga.StepContext) error {
				return p.passwords.Create(ctx, onyen, auth.PasswordHash)
			},
		),
		saga.NewStep(stepDeleteUserRecord,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				return nil, p.users.Delete(ctx, onyen)
			},
			func(ctx context.Context, _ saga.StepContext) error {
				restored := *user
				restored.ID = 0
				return p.users.Create(ctx, &restored)
			},
		),
	}

	for _, step := range steps {
		if err := builder.Append(step); err != nil {
			return err
		}
	}
	plan, err := builder.Build()
	if err != nil {
		return err
	}

	p.syslog.WithField("onyen", onyen).Info("deleting user")
	return p.run(ctx, plan)
}
