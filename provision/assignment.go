package provision

import (
	"context"
	"path"
	"time"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/gitserver"
	"github.com/eduhelx/grader-core/models"
	"github.com/eduhelx/grader-core/saga"
)

const (
	stepCreateAssignmentRecord  saga.StepName = "create-assignment-record"
	stepInitializeAssignmentDir saga.StepName = "initialize-assignment-directory"
)

// CreateAssignmentParams carries the LMS-sourced fields of a new assignment.
type CreateAssignmentParams struct {
	// ID is assigned by the LMS.
	ID            int
	Name          string
	DirectoryPath string
	AvailableDate *time.Time
	DueDate       *time.Time
	IsPublished   bool
}

// CreateAssignment provisions an assignment: the database row plus an
// initialized directory (generated .gitignore and pinned requirements.txt) in
// the class master repository, committed as "Initialize assignment".
//
// Date ordering is validated before any step runs: an assignment may not be
// due before it opens.
func (p *Provisioner) CreateAssignment(
	ctx context.Context, params CreateAssignmentParams,
) (*models.Assignment, error) {
	if params.Name == "" || params.DirectoryPath == "" {
		return nil, apperrors.Validationf("assignment name and directory path must not be empty")
	}
	if err := validateAssignmentDates(params.AvailableDate, params.DueDate); err != nil {
		return nil, err
	}

	course, err := p.courses.Get(ctx)
	if err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		ID:                 params.ID,
		Name:               params.Name,
		DirectoryPath:      params.DirectoryPath,
		MasterNotebookPath: MasterNotebookName(params.Name),
		AvailableDate:      params.AvailableDate,
		DueDate:            params.DueDate,
		IsPublished:        params.IsPublished,
	}

	repoName := MasterRepositoryName(course.Name)
	orgName := InstructorOrganizationName(course.Name)

	registry := saga.NewRegistry()
	builder := saga.NewPlanBuilder("create-assignment", registry)

	steps := []saga.Step{
		saga.NewStep(stepCreateAssignmentRecord,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				if err := p.assignments.Create(ctx, assignment); err != nil {
					return nil, err
				}
				return assignment.ID, nil
			},
			func(ctx context.Context, _ saga.StepContext) error {
				return p.assignments.Delete(ctx, assignment.ID)
			},
		),
		saga.NewStep(stepInitializeAssignmentDir,
			func(ctx context.Context, _ saga.StepContext) (any, error) {
				files := []gitserver.FileOperation{
					{
						Path:      path.Join(assignment.DirectoryPath, ".gitignore"),
						Content:   GitignoreContent(assignment),
						Operation: gitserver.FileOpCreate,
					},
					{
						Path:      path.Join(assignment.DirectoryPath, "requirements.txt"),
						Content:   RequirementsContent,
						Operation: gitserver.FileOpCreate,
					},
				}
				return nil, p.git.ModifyRepositoryFiles(
					ctx, repoName, orgName, MasterBranchName, "Initialize assignment", files,
				)
			},
			func(ctx context.Context, _ saga.StepContext) error {
				return p.git.ModifyRepositoryFiles(
					ctx, repoName, orgName, MasterBranchName, "Delete assignment",
					[]gitserver.FileOperation{
						{Path: assignment.DirectoryPath, Operation: gitserver.FileOpDelete},
					},
				)
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

	p.syslog.WithField("assignment", params.Name).Info("creating assignment")
	if err := p.run(ctx, plan); err != nil {
		return nil, err
	}
	return assignment, nil
}

// DeleteAssignment removes the assignment's directory from the class master
// repository, then its database row. The repository delete comes first: if it
// fails, the row is retained and the error surfaces to the caller. There is no
// compensation here; a half-deleted assignment is recovered by retrying.
func (p *Provisioner) DeleteAssignment(ctx context.Context, id int) error {
	assignment, err := p.assignments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	course, err := p.courses.Get(ctx)
	if err != nil {
		return err
	}

	p.syslog.WithField("assignment", assignment.Name).Info("deleting assignment")

	err = p.git.ModifyRepositoryFiles(
		ctx,
		MasterRepositoryName(course.Name),
		InstructorOrganizationName(course.Name),
		MasterBranchName,
		"Delete assignment",
		[]gitserver.FileOperation{
			{Path: assignment.DirectoryPath, Operation: gitserver.FileOpDelete},
		},
	)
	if err != nil {
		return apperrors.ExternalService(err, "failed to delete assignment directory; assignment retained")
	}

	return p.assignments.Delete(ctx, id)
}

// UpdateAssignmentParams carries a partial update; nil fields are unchanged.
type UpdateAssignmentParams struct {
	Name                   *string
	DirectoryPath          *string
	MasterNotebookPath     *string
	GraderQuestionFeedback *bool
	MaxAttempts            **int
	AvailableDate          **time.Time
	DueDate                **time.Time
	IsPublished            *bool
}

// UpdateAssignment rewrites assignment fields. No external system is touched;
// renames do not move the directory in the master repository. Date ordering is
// re-validated against the post-update values.
func (p *Provisioner) UpdateAssignment(
	ctx context.Context, id int, params UpdateAssignmentParams,
) (*models.Assignment, error) {
	assignment, err := p.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		assignment.Name = *params.Name
	}
	if params.DirectoryPath != nil {
		assignment.DirectoryPath = *params.DirectoryPath
	}
	if params.MasterNotebookPath != nil {
		assignment.MasterNotebookPath = *params.MasterNotebookPath
	}
	if params.GraderQuestionFeedback != nil {
		assignment.GraderQuestionFeedback = *params.GraderQuestionFeedback
	}
	if params.MaxAttempts != nil {
		assignment.MaxAttempts = *params.MaxAttempts
	}
	if params.AvailableDate != nil {
		assignment.AvailableDate = *params.AvailableDate
	}
	if params.DueDate != nil {
		assignment.DueDate = *params.DueDate
	}
	if params.IsPublished != nil {
		assignment.IsPublished = *params.IsPublished
	}

	if err := validateAssignmentDates(assignment.AvailableDate, assignment.DueDate); err != nil {
		return nil, err
	}

	if err := p.assignments.Update(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// validateAssignmentDates enforces that an assignment opens strictly before it
// is due. Unset dates are allowed; the ordering only binds once both exist.
func validateAssignmentDates(available, due *time.Time) error {
	if available != nil && due != nil && !available.Before(*due) {
		return apperrors.Validationf("assignment is due before it becomes available")
	}
	return nil
}
