// Package provision orchestrates the multi-system workflows that keep the
// relational database, the Git hosting service and the secret store
// consistent. Each workflow with external effects runs as a saga: forward
// steps in a fixed order, compensations in strict reverse order when a step
// fails.
package provision

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/gitserver"
	"github.com/eduhelx/grader-core/models"
	"github.com/eduhelx/grader-core/saga"
	"github.com/eduhelx/grader-core/secrets"
)

// CourseStore is the slice of the course repository the sagas need.
type CourseStore interface {
	Get(ctx context.Context) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	SetMasterRemoteURL(ctx context.Context, id int, url string) error
	UpdateName(ctx context.Context, id int, name string) error
	Delete(ctx context.Context, id int) error
}

// UserStore is the slice of the user repository the sagas need.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByOnyen(ctx context.Context, onyen string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Delete(ctx context.Context, onyen string) error
}

// AutoPasswordStore persists the salted hashes of autogenerated passwords.
type AutoPasswordStore interface {
	Create(ctx context.Context, onyen, passwordHash string) error
	Get(ctx context.Context, onyen string) (*models.AutoPasswordAuth, error)
	Delete(ctx context.Context, onyen string) error
}

// AssignmentStore is the slice of the assignment repository the sagas need.
type AssignmentStore interface {
	Create(ctx context.Context, a *models.Assignment) error
	GetByID(ctx context.Context, id int) (*models.Assignment, error)
	Update(ctx context.Context, a *models.Assignment) error
	Delete(ctx context.Context, id int) error
}

// Provisioner runs the provisioning workflows. All collaborators are injected;
// nothing here reaches for ambient singletons.
type Provisioner struct {
	courses     CourseStore
	users       UserStore
	passwords   AutoPasswordStore
	assignments AssignmentStore
	git         gitserver.Client
	secrets     secrets.Store
	sagaStore   saga.Store

	syslog *logrus.Entry
}

// New creates a Provisioner. Saga execution states are persisted in sagaStore
// so a wedged saga can be inspected and force-compensated.
func New(
	courses CourseStore,
	users UserStore,
	passwords AutoPasswordStore,
	assignments AssignmentStore,
	git gitserver.Client,
	secretStore secrets.Store,
	sagaStore saga.Store,
) *Provisioner {
	return &Provisioner{
		courses:     courses,
		users:       users,
		passwords:   passwords,
		assignments: assignments,
		git:         git,
		secrets:     secretStore,
		sagaStore:   sagaStore,
		syslog:      logrus.WithField("component", "provision"),
	}
}

// run builds a fresh executor for plan and maps saga failures onto the coded
// error kinds callers dispatch on.
func (p *Provisioner) run(ctx context.Context, plan *saga.Plan) error {
	executor := saga.NewExecutor(plan, saga.NewSagaID(), p.sagaStore)
	return mapSagaError(executor.Execute(ctx))
}

// mapSagaError translates executor errors into coded errors. A double fault
// keeps both causes. A cleanly rolled-back failure keeps its own code when the
// failing step produced one (a conflict stays a conflict), and becomes an
// external-service error otherwise.
func mapSagaError(err error) error {
	if err == nil {
		return nil
	}

	var rollback *saga.RollbackError
	if errors.As(err, &rollback) {
		return apperrors.DoubleFault(
			rollback.Cause,
			rollback.Compensation,
			fmt.Sprintf("rollback of %q did not complete; manual intervention required", rollback.Saga),
		)
	}

	var abort *saga.AbortError
	if errors.As(err, &abort) {
		if apperrors.CodeOf(abort.Cause) != "" {
			return abort.Cause
		}
		return apperrors.ExternalService(
			abort.Cause,
			fmt.Sprintf("%q failed and was rolled back", abort.Saga),
		)
	}

	return err
}
