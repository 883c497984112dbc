// Package gitserver is a thin typed client for the Git hosting service. The
// sagas in the provision package call through the Client interface; tests
// substitute fault-injecting fakes for it.
package gitserver

import (
	"context"
	"fmt"
)

// FileOperationType selects what a FileOperation does to its path.
type FileOperationType string

const (
	// FileOpCreate writes a new file with the given content.
	FileOpCreate FileOperationType = "create"
	// FileOpDelete removes the path. A directory path removes it
	// recursively.
	FileOpDelete FileOperationType = "delete"
)

// FileOperation is one entry of a batched content modification. The batch is
// applied as a single commit.
type FileOperation struct {
	Path      string
	Content   string
	Operation FileOperationType
}

// Client is the contract the provisioning core depends on. All calls are
// synchronous from the caller's perspective and return an error on any
// non-2xx response. Per-call timeouts are the adapter's responsibility, not
// the saga's.
type Client interface {
	CreateOrganization(ctx context.Context, name string) error
	// DeleteOrganization removes an organization. Deletion cascades to the
	// organization's repositories and their hooks.
	DeleteOrganization(ctx context.Context, name string) error

	// CreateRepository creates a repository under owner and returns its
	// remote URL.
	CreateRepository(ctx context.Context, name, description, owner string, private bool) (string, error)
	// ModifyRepositoryFiles applies the batch of file operations as a single
	// commit on branch with the given commit message.
	ModifyRepositoryFiles(ctx context.Context, repo, owner, branch, commitMessage string, files []FileOperation) error
	// SetGitHook installs a server-side hook (e.g. "pre-receive") on the
	// repository. Hook content is an opaque policy script.
	SetGitHook(ctx context.Context, repo, owner, hookID, content string) error

	CreateUser(ctx context.Context, username, email, password string) error
	AddUserToOrganization(ctx context.Context, org, username string) error
	// DeleteUser removes an account. With purge set, the account and
	// everything it owns are destroyed; this cannot be undone by recreating
	// the account.
	DeleteUser(ctx context.Context, username string, purge bool) error
}

// APIError reports a non-2xx response from the Git hosting service.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("git server returned %d for %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
}
