package gitserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 30 * time.Second

var _ Client = (*GiteaClient)(nil)

// GiteaClient implements Client against the Gitea REST API using an admin
// token.
type GiteaClient struct {
	baseURL string
	token   string
	http    *http.Client
	syslog  *logrus.Entry
}

// NewGiteaClient creates a client for the Gitea instance at baseURL.
func NewGiteaClient(baseURL, token string) *GiteaClient {
	return &GiteaClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		syslog:  logrus.WithField("component", "gitserver"),
	}
}

// do issues an API request and decodes a JSON response into out when out is
// non-nil. Non-2xx responses become an *APIError.
func (c *GiteaClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "git server request failed: %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       string(data),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "failed to decode response body")
		}
	}
	return nil
}

// CreateOrganization implements Client.
func (c *GiteaClient) CreateOrganization(ctx context.Context, name string) error {
	c.syslog.WithField("org", name).Info("creating organization")
	return c.do(ctx, http.MethodPost, "/orgs", map[string]any{
		"username":   name,
		"visibility": "private",
	}, nil)
}

// DeleteOrganization implements Client.
func (c *GiteaClient) DeleteOrganization(ctx context.Context, name string) error {
	c.syslog.WithField("org", name).Info("deleting organization")
	return c.do(ctx, http.MethodDelete, "/orgs/"+url.PathEscape(name), nil, nil)
}

// CreateRepository implements Client.
func (c *GiteaClient) CreateRepository(
	ctx context.Context, name, description, owner string, private bool,
) (string, error) {
	c.syslog.WithFields(logrus.Fields{"repo": name, "owner": owner}).Info("creating repository")

	var created struct {
		CloneURL string `json:"clone_url"`
	}
	err := c.do(ctx, http.MethodPost, "/orgs/"+url.PathEscape(owner)+"/repos", map[string]any{
		"name":        name,
		"description": description,
		"private":     private,
		"auto_init":   false,
	}, &created)
	if err != nil {
		return "", err
	}
	return created.CloneURL, nil
}

// ModifyRepositoryFiles implements Client. The whole batch lands as one
// commit.
func (c *GiteaClient) ModifyRepositoryFiles(
	ctx context.Context, repo, owner, branch, commitMessage string, files []FileOperation,
) error {
	c.syslog.WithFields(logrus.Fields{
		"repo": repo, "owner": owner, "files": len(files),
	}).Info("modifying repository files")

	type fileChange struct {
		Path      string `json:"path"`
		Content   string `json:"content,omitempty"`
		Operation string `json:"operation"`
	}

	changes := make([]fileChange, len(files))
	for i, f := range files {
		changes[i] = fileChange{
			Path:      f.Path,
			Operation: string(f.Operation),
		}
		if f.Operation == FileOpCreate {
			changes[i].Content = base64.StdEncoding.EncodeToString([]byte(f.Content))
		}
	}

	path := fmt.Sprintf("/repos/%s/%s/contents", url.PathEscape(owner), url.PathEscape(repo))
	return c.do(ctx, http.MethodPost, path, map[string]any{
		"branch":  branch,
		"message": commitMessage,
		"files":   changes,
	}, nil)
}

// SetGitHook implements Client.
func (c *GiteaClient) SetGitHook(ctx context.Context, repo, owner, hookID, content string) error {
	c.syslog.WithFields(logrus.Fields{"repo": repo, "hook": hookID}).Info("installing git hook")

	path := fmt.Sprintf("/repos/%s/%s/hooks/git/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(hookID))
	return c.do(ctx, http.MethodPatch, path, map[string]any{
		"content": content,
	}, nil)
}

// CreateUser implements Client.
func (c *GiteaClient) CreateUser(ctx context.Context, username, email, password string) error {
	c.syslog.WithField("username", username).Info("creating git account")
	return c.do(ctx, http.MethodPost, "/admin/users", map[string]any{
		"username":             username,
		"email":                email,
		"password":             password,
		"must_change_password": false,
	}, nil)
}

// AddUserToOrganization implements Client.
func (c *GiteaClient) AddUserToOrganization(ctx context.Context, org, username string) error {
	c.syslog.WithFields(logrus.Fields{"org": org, "username": username}).
		Info("adding account to organization")

	path := fmt.Sprintf("/orgs/%s/members/%s", url.PathEscape(org), url.PathEscape(username))
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

// DeleteUser implements Client.
func (c *GiteaClient) DeleteUser(ctx context.Context, username string, purge bool) error {
	c.syslog.WithFields(logrus.Fields{"username": username, "purge": purge}).
		Info("deleting git account")

	path := "/admin/users/" + url.PathEscape(username)
	if purge {
		path += "?purge=true"
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
