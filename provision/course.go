package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/gitserver"
	"github.com/eduhelx/grader-core/models"
	"github.com/eduhelx/grader-core/saga"
)

const (
	stepCreateCourseRecord     saga.StepName = "create-course-record"
	stepCreateInstructorOrg    saga.StepName = "create-instructor-organization"
	stepCreateMasterRepository saga.StepName = "create-master-repository"
	stepInstallPreReceiveHook  saga.StepName = "install-pre-receive-hook"
	stepRecordMasterRemoteURL  saga.StepName = "record-master-remote-url"
)

// CreateCourse provisions the singleton course: the database row, the
// instructor organization, the class master repository with its initial
// commit and pre-receive hook, and finally the remote URL recorded back onto
// the row.
//
// The duplicate check runs before the saga so a conflict is rejected without
// touching any external system.
func (p *Provisioner) CreateCourse(
	ctx context.Context, name string, startAt, endAt time.Time,
) (*models.Course, error) {
	if name == "" {
		return nil, apperrors.Validationf("course name must not be empty")
	}

	_, err := p.courses.Get(ctx)
	if err == nil {
		return nil, apperrors.Conflictf("a course already exists")
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	course := &models.Course{Name: name, StartAt: startAt, EndAt: endAt}
	orgName := InstructorOrganizationName(name)
	repoName := MasterRepositoryName(name)

	registry := saga.NewRegistry()
	builder := saga.NewPlanBuilder("create-course", registry)

	steps := []saga.Step{
		saga.NewStep(stepCreateCourseRecord,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				if err := p.courses.Create(ctx, course); err != nil {
					return nil, err
				}
				return course.ID, nil
			},
			func(ctx context.Context, _ saga.StepContext) error {
				return p.courses.Delete(ctx, course.ID)
			},
		),
		saga.NewStep(stepCreateInstructorOrg,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				return orgName, p.git.CreateOrganization(ctx, orgName)
			},
			func(ctx context.Context, _ saga.StepContext) error {
				return p.git.DeleteOrganization(ctx, orgName)
			},
		),
		// Deleting the organization removes its repositories and their hooks,
		// so the remaining steps compensate transitively through the org step.
		saga.NewStepWithNoOpUndo(stepCreateMasterRepository,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				remoteURL, err := p.git.CreateRepository(
					ctx, repoName,
					fmt.Sprintf("The class master repository for %s", name),
					orgName, true,
				)
				if err != nil {
					return nil, err
				}

				err = p.git.ModifyRepositoryFiles(
					ctx, repoName, orgName, MasterBranchName, "Initial commit",
					[]gitserver.FileOperation{
						{Path: ".gitignore", Content: ".ssh\n", Operation: gitserver.FileOpCreate},
					},
				)
				if err != nil {
					return nil, err
				}
				return remoteURL, nil
			},
		),
		saga.NewStepWithNoOpUndo(stepInstallPreReceiveHook,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				return nil, p.git.SetGitHook(
					ctx, repoName, orgName,
					"pre-receive", gitserver.MasterPreReceiveHook(),
				)
			},
		),
		saga.NewStepWithNoOpUndo(stepRecordMasterRemoteURL,
			func(ctx context.Context, sc saga.StepContext) (any, error) {
				remoteURL, ok := saga.LookupTyped[string](sc, stepCreateMasterRepository)
				if !ok {
					return nil, fmt.Errorf("output of step %q is missing", stepCreateMasterRepository)
				}

				if err := p.courses.SetMasterRemoteURL(ctx, course.ID, remoteURL); err != nil {
					return nil, err
				}
				course.MasterRemoteURL = remoteURL
				return nil, nil
			},
		),
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

	p.syslog.WithField("course", name).Info("creating course")
	if err := p.run(ctx, plan); err != nil {
		return nil, err
	}
	return course, nil
}

// GetCourse returns the singleton course row.
func (p *Provisioner) GetCourse(ctx context.Context) (*models.Course, error) {
	return p.courses.Get(ctx)
}

// UpdateCourseName renames the course row. Git resources keep the names they
// were provisioned under; renaming them is not supported.
func (p *Provisioner) UpdateCourseName(ctx context.Context, name string) (*models.Course, error) {
	if name == "" {
		return nil, apperrors.Validationf("course name must not be empty")
	}

	course, err := p.courses.Get(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.courses.UpdateName(ctx, course.ID, name); err != nil {
		return nil, err
	}
	course.Name = name
	return course, nil
}
