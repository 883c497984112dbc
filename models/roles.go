package models

// Permission is a capability granted by a role.
type Permission string

// The full permission set. Permission strings are stable identifiers shared
// with the API layer.
const (
	PermAssignmentGet    Permission = "assignment:get"
	PermAssignmentCreate Permission = "assignment:create"
	PermAssignmentModify Permission = "assignment:modify"
	PermAssignmentDelete Permission = "assignment:delete"

	PermCourseGet    Permission = "course:get"
	PermCourseCreate Permission = "course:create"
	PermCourseModify Permission = "course:modify"
	PermCourseDelete Permission = "course:delete"

	PermStudentGet    Permission = "student:get"
	PermStudentCreate Permission = "student:create"
	PermStudentModify Permission = "student:modify"
	PermStudentDelete Permission = "student:delete"

	PermInstructorGet    Permission = "instructor:get"
	PermInstructorCreate Permission = "instructor:create"
	PermInstructorModify Permission = "instructor:modify"
	PermInstructorDelete Permission = "instructor:delete"

	PermSubmissionGet    Permission = "submission:get"
	PermSubmissionCreate Permission = "submission:create"
	PermSubmissionModify Permission = "submission:modify"
	PermSubmissionDelete Permission = "submission:delete"
	// PermSubmissionDownload allows downloading a submission from a student
	// repository. Access to the submission itself is still required.
	PermSubmissionDownload Permission = "submission:download"
)

// Role is a tagged capability set. Role-specific behavior is selected by
// explicit switches on this value; there is no role subclassing.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

var allPermissions = []Permission{
	PermAssignmentGet, PermAssignmentCreate, PermAssignmentModify, PermAssignmentDelete,
	PermCourseGet, PermCourseCreate, PermCourseModify, PermCourseDelete,
	PermStudentGet, PermStudentCreate, PermStudentModify, PermStudentDelete,
	PermInstructorGet, PermInstructorCreate, PermInstructorModify, PermInstructorDelete,
	PermSubmissionGet, PermSubmissionCreate, PermSubmissionModify, PermSubmissionDelete,
	PermSubmissionDownload,
}

var instructorPermissions = []Permission{
	PermAssignmentGet, PermAssignmentCreate, PermAssignmentModify, PermAssignmentDelete,
	PermCourseGet, PermCourseCreate, PermCourseModify,
	PermStudentGet, PermStudentCreate, PermStudentModify,
	PermInstructorGet,
	PermSubmissionGet, PermSubmissionDownload,
}

var studentPermissions = []Permission{
	PermCourseGet,
	PermSubmissionCreate,
	PermInstructorGet,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Permissions returns the capability set carried by the role.
func (r Role) Permissions() []Permission {
	switch r {
	case RoleAdmin:
		return allPermissions
	case RoleInstructor:
		return instructorPermissions
	case RoleStudent:
		return studentPermissions
	default:
		return nil
	}
}

// Has reports whether the role grants the permission.
func (r Role) Has(p Permission) bool {
	for _, perm := range r.Permissions() {
		if perm == p {
			return true
		}
	}
	return false
}

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}
