package provision

import (
	"fmt"
	"strings"

	"github.com/eduhelx/grader-core/models"
)

// MasterBranchName is the only branch the provisioning core ever commits to.
const MasterBranchName = "main"

// RequirementsContent pins the autograder for every assignment environment.
const RequirementsContent = "otter-grader==5.5.0"

// InstructorOrganizationName derives the Git organization holding the class
// master repository. The course name is shortened to its first three
// underscore-separated segments so long course titles produce a usable slug.
func InstructorOrganizationName(courseName string) string {
	slug := strings.ReplaceAll(courseName, " ", "_")
	parts := strings.SplitN(slug, "_", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, "_") + "-instructors"
}

// MasterRepositoryName derives the class master repository name. No spaces
// allowed in repository names.
func MasterRepositoryName(courseName string) string {
	return strings.ReplaceAll(courseName, " ", "_") + "-class-master-repo"
}

// StudentRepositoryName derives the per-student repository name.
func StudentRepositoryName(courseName string) string {
	return strings.ReplaceAll(courseName, " ", "_") + "-student-repo"
}

// MasterNotebookName derives the notebook filename stored on an assignment
// row, relative to the assignment directory.
func MasterNotebookName(assignmentName string) string {
	return assignmentName + ".ipynb"
}

// ProfessorNotebookName derives the instructor-facing notebook filename for an
// assignment.
func ProfessorNotebookName(assignmentName string) string {
	return assignmentName + "-prof.ipynb"
}

// ProtectedFiles lists the paths (or globs) under an assignment's directory
// that students must never receive or overwrite. Paths are relative to the
// assignment directory.
func ProtectedFiles(a *models.Assignment) []string {
	return []string{
		"*grades.csv",
		"*grading_config.json",
		a.MasterNotebookPath,
		a.Name + "-dist",
		".ssh",
		"prof-scripts",
	}
}

// GitignoreContent renders the default .gitignore for an assignment directory:
// Python/Jupyter noise plus the protected files.
func GitignoreContent(a *models.Assignment) string {
	return fmt.Sprintf(`### Defaults ###
__pycache__/
*.py[cod]
*$py.class
*venv
.ipynb_checkpoints
.OTTER_LOG

### Protected ###
%s
`, strings.Join(ProtectedFiles(a), "\n"))
}
