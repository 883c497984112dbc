// Package models holds the domain rows managed by the provisioning core.
// Database rows are authoritative; the Git hosting and secret-store resources
// that correspond to them are derived state kept consistent by the sagas.
package models

import (
	"path"
	"strings"
	"time"
)

// Course is a singleton row: at most one course exists per deployment.
// Absence and multiplicity are both misconfiguration, not normal states.
type Course struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	// MasterRemoteURL is empty until course provisioning succeeds.
	MasterRemoteURL string    `db:"master_remote_url" json:"master_remote_url"`
	StartAt         time.Time `db:"start_at" json:"start_at"`
	EndAt           time.Time `db:"end_at" json:"end_at"`
}

// Assignment is a unit of coursework rooted at a directory of the class
// master repository.
type Assignment struct {
	// ID is externally assigned (it comes from the LMS), not generated.
	ID            int    `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	DirectoryPath string `db:"directory_path" json:"directory_path"`
	// MasterNotebookPath is relative to DirectoryPath.
	MasterNotebookPath     string `db:"master_notebook_path" json:"master_notebook_path"`
	GraderQuestionFeedback bool   `db:"grader_question_feedback" json:"grader_question_feedback"`
	// MaxAttempts limits a student's submissions when set; nil means
	// unlimited.
	MaxAttempts      *int       `db:"max_attempts" json:"max_attempts"`
	CreatedDate      time.Time  `db:"created_date" json:"created_date"`
	AvailableDate    *time.Time `db:"available_date" json:"available_date"`
	DueDate          *time.Time `db:"due_date" json:"due_date"`
	LastModifiedDate time.Time  `db:"last_modified_date" json:"last_modified_date"`
	IsPublished      bool       `db:"is_published" json:"is_published"`
}

// IsCreated reports whether the assignment has been scheduled: both an
// available date and a due date are set.
func (a *Assignment) IsCreated() bool {
	return a.AvailableDate != nil && a.DueDate != nil
}

// StudentNotebookPath derives the student-facing notebook path from the
// master notebook path: "hw1/hw1.ipynb" becomes "hw1/hw1-student.ipynb".
func (a *Assignment) StudentNotebookPath() string {
	dir := path.Dir(a.MasterNotebookPath)
	base := path.Base(a.MasterNotebookPath)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return path.Join(dir, stem+"-student.ipynb")
}

// User is a course participant. The Role tag selects the capability set and
// the role-specific provisioning path.
type User struct {
	ID        int    `db:"id" json:"id"`
	Onyen     string `db:"onyen" json:"onyen"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
	Role      Role   `db:"role" json:"role"`
	// BaseExtraTime is added to every assignment's deadline for this user.
	// Only meaningful for students; zero otherwise.
	BaseExtraTime time.Duration `db:"base_extra_time" json:"base_extra_time"`
}

// ExtraTime is a per (student, assignment) scheduling override.
type ExtraTime struct {
	ID           int `db:"id" json:"id"`
	StudentID    int `db:"student_id" json:"student_id"`
	AssignmentID int `db:"assignment_id" json:"assignment_id"`
	// DeferredTime delays the assignment's availability for the student.
	DeferredTime time.Duration `db:"deferred_time" json:"deferred_time"`
	// ExtraTime extends the assignment's deadline for the student.
	ExtraTime time.Duration `db:"extra_time" json:"extra_time"`
}

// Submission records one student submission of an assignment, identified by
// the commit it points at.
type Submission struct {
	ID             int       `db:"id" json:"id"`
	StudentID      int       `db:"student_id" json:"student_id"`
	AssignmentID   int       `db:"assignment_id" json:"assignment_id"`
	CommitID       string    `db:"commit_id" json:"commit_id"`
	SubmissionTime time.Time `db:"submission_time" json:"submission_time"`
}

// AutoPasswordAuth stores the salted hash of a user's autogenerated password.
// The plaintext lives only in the secret store.
type AutoPasswordAuth struct {
	Onyen        string `db:"onyen" json:"onyen"`
	PasswordHash string `db:"autogen_password_hash" json:"-"`
}
