package provision

import (
	"context"
	"fmt"
	"sync"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/gitserver"
	"github.com/eduhelx/grader-core/models"
	"github.com/eduhelx/grader-core/saga"
	"github.com/eduhelx/grader-core/secrets"
)

// failures injects an error by method name. A fake consults it before doing
// anything else.
type failures map[string]error

func (f failures) check(method string) error {
	if f == nil {
		return nil
	}
	return f[method]
}

// fakeGit records every call in order so tests can assert what hit the Git
// hosting service and when.
type fakeGit struct {
	mu    sync.Mutex
	calls []string
	fail  failures

	orgs    map[string]bool
	repos   map[string]string // "owner/name" -> remote URL
	users   map[string]bool
	members map[string][]string // org -> usernames
	hooks   map[string]string   // "owner/repo/hook" -> content
	commits []string
	lastOps []gitserver.FileOperation
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		orgs:    make(map[string]bool),
		repos:   make(map[string]string),
		users:   make(map[string]bool),
		members: make(map[string][]string),
		hooks:   make(map[string]string),
	}
}

func (g *fakeGit) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGit) CreateOrganization(_ context.Context, name string) error {
	g.record("CreateOrganization:" + name)
	if err := g.fail.check("CreateOrganization"); err != nil {
		return err
	}
	g.orgs[name] = true
	return nil
}

func (g *fakeGit) DeleteOrganization(_ context.Context, name string) error {
	g.record("DeleteOrganization:" + name)
	if err := g.fail.check("DeleteOrganization"); err != nil {
		return err
	}
	delete(g.orgs, name)
	// Deletion cascades to the org's repositories.
	for key := range g.repos {
		if len(key) > len(name) && key[:len(name)] == name {
			delete(g.repos, key)
		}
	}
	return nil
}

func (g *fakeGit) CreateRepository(
	_ context.Context, name, _, owner string, _ bool,
) (string, error) {
	g.record("CreateRepository:" + owner + "/" + name)
	if err := g.fail.check("CreateRepository"); err != nil {
		return "", err
	}
	url := fmt.Sprintf("https://git.example.org/%s/%s.git", owner, name)
	g.repos[owner+"/"+name] = url
	return url, nil
}

func (g *fakeGit) ModifyRepositoryFiles(
	_ context.Context, repo, owner, _, commitMessage string, files []gitserver.FileOperation,
) error {
	g.record("ModifyRepositoryFiles:" + owner + "/" + repo)
	if err := g.fail.check("ModifyRepositoryFiles"); err != nil {
		return err
	}
	g.commits = append(g.commits, commitMessage)
	g.lastOps = files
	return nil
}

func (g *fakeGit) SetGitHook(_ context.Context, repo, owner, hookID, content string) error {
	g.record("SetGitHook:" + owner + "/" + repo + "/" + hookID)
	if err := g.fail.check("SetGitHook"); err != nil {
		return err
	}
	g.hooks[owner+"/"+repo+"/"+hookID] = content
	return nil
}

func (g *fakeGit) CreateUser(_ context.Context, username, _, _ string) error {
	g.record("CreateUser:" + username)
	if err := g.fail.check("CreateUser"); err != nil {
		return err
	}
	g.users[username] = true
	return nil
}

func (g *fakeGit) AddUserToOrganization(_ context.Context, org, username string) error {
	g.record("AddUserToOrganization:" + org + "/" + username)
	if err := g.fail.check("AddUserToOrganization"); err != nil {
		return err
	}
	g.members[org] = append(g.members[org], username)
	return nil
}

func (g *fakeGit) DeleteUser(_ context.Context, username string, purge bool) error {
	g.record(fmt.Sprintf("DeleteUser:%s:purge=%t", username, purge))
	if err := g.fail.check("DeleteUser"); err != nil {
		return err
	}
	delete(g.users, username)
	return nil
}

// fakeSecrets implements secrets.Store in memory.
type fakeSecrets struct {
	calls []string
	fail  failures

	passwords map[string]string // secret name -> password
	roles     map[string]models.Role
}

var _ secrets.Store = (*fakeSecrets)(nil)

func newFakeSecrets() *fakeSecrets {
	return &fakeSecrets{
		passwords: make(map[string]string),
		roles:     make(map[string]models.Role),
	}
}

func (s *fakeSecrets) CreateCredentialSecret(
	_ context.Context, courseName, onyen, password string, role models.Role,
) error {
	s.calls = append(s.calls, "CreateCredentialSecret:"+onyen)
	if err := s.fail.check("CreateCredentialSecret"); err != nil {
		return err
	}
	name := secrets.SecretName(courseName, onyen)
	if _, exists := s.passwords[name]; exists {
		return apperrors.Conflictf("credential secret %q already exists", name)
	}
	s.passwords[name] = password
	s.roles[name] = role
	return nil
}

func (s *fakeSecrets) GetAutogenPassword(_ context.Context, courseName, onyen string) (string, error) {
	s.calls = append(s.calls, "GetAutogenPassword:"+onyen)
	if err := s.fail.check("GetAutogenPassword"); err != nil {
		return "", err
	}
	name := secrets.SecretName(courseName, onyen)
	password, ok := s.passwords[name]
	if !ok {
		return "", apperrors.NotFoundf("credential secret %q not found", name)
	}
	return password, nil
}

func (s *fakeSecrets) DeleteCredentialSecret(_ context.Context, courseName, onyen string) error {
	s.calls = append(s.calls, "DeleteCredentialSecret:"+onyen)
	if err := s.fail.check("DeleteCredentialSecret"); err != nil {
		return err
	}
	name := secrets.SecretName(courseName, onyen)
	delete(s.passwords, name)
	delete(s.roles, name)
	return nil
}

// fakeCourses implements CourseStore on the singleton row.
type fakeCourses struct {
	fail   failures
	course *models.Course
	nextID int
}

func (c *fakeCourses) Get(context.Context) (*models.Course, error) {
	if err := c.fail.check("Get"); err != nil {
		return nil, err
	}
	if c.course == nil {
		return nil, apperrors.NotFoundf("no course exists")
	}
	copied := *c.course
	return &copied, nil
}

func (c *fakeCourses) Create(_ context.Context, course *models.Course) error {
	if err := c.fail.check("Create"); err != nil {
		return err
	}
	c.nextID++
	course.ID = c.nextID
	copied := *course
	c.course = &copied
	return nil
}

func (c *fakeCourses) SetMasterRemoteURL(_ context.Context, id int, url string) error {
	if err := c.fail.check("SetMasterRemoteURL"); err != nil {
		return err
	}
	c.course.MasterRemoteURL = url
	return nil
}

func (c *fakeCourses) UpdateName(_ context.Context, id int, name string) error {
	if err := c.fail.check("UpdateName"); err != nil {
		return err
	}
	c.course.Name = name
	return nil
}

func (c *fakeCourses) Delete(context.Context, int) error {
	if err := c.fail.check("Delete"); err != nil {
		return err
	}
	c.course = nil
	return nil
}

// fakeUsers implements UserStore.
type fakeUsers struct {
	fail    failures
	byOnyen map[string]*models.User
	nextID  int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byOnyen: make(map[string]*models.User)}
}

func (u *fakeUsers) Create(_ context.Context, user *models.User) error {
	if err := u.fail.check("Create"); err != nil {
		return err
	}
	u.nextID++
	user.ID = u.nextID
	copied := *user
	u.byOnyen[user.Onyen] = &copied
	return nil
}

func (u *fakeUsers) GetByOnyen(_ context.Context, onyen string) (*models.User, error) {
	if err := u.fail.check("GetByOnyen"); err != nil {
		return nil, err
	}
	user, ok := u.byOnyen[onyen]
	if !ok {
		return nil, apperrors.NotFoundf("user %q not found", onyen)
	}
	copied := *user
	return &copied, nil
}

func (u *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if err := u.fail.check("GetByEmail"); err != nil {
		return nil, err
	}
	for _, user := range u.byOnyen {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperrors.NotFoundf("user with email %q not found", email)
}

func (u *fakeUsers) Delete(_ context.Context, onyen string) error {
	if err := u.fail.check("Delete"); err != nil {
		return err
	}
	delete(u.byOnyen, onyen)
	return nil
}

// fakePasswords implements AutoPasswordStore.
type fakePasswords struct {
	fail   failures
	hashes map[string]string
}

func newFakePasswords() *fakePasswords {
	return &fakePasswords{hashes: make(map[string]string)}
}

func (p *fakePasswords) Create(_ context.Context, onyen, passwordHash string) error {
	if err := p.fail.check("Create"); err != nil {
		return err
	}
	p.hashes[onyen] = passwordHash
	return nil
}

func (p *fakePasswords) Get(_ context.Context, onyen string) (*models.AutoPasswordAuth, error) {
	if err := p.fail.check("Get"); err != nil {
		return nil, err
	}
	hash, ok := p.hashes[onyen]
	if !ok {
		return nil, apperrors.NotFoundf("no auto password auth for %q", onyen)
	}
	return &models.AutoPasswordAuth{Onyen: onyen, PasswordHash: hash}, nil
}

func (p *fakePasswords) Delete(_ context.Context, onyen string) error {
	if err := p.fail.check("Delete"); err != nil {
		return err
	}
	delete(p.hashes, onyen)
	return nil
}

// fakeAssignments implements AssignmentStore.
type fakeAssignments struct {
	fail failures
	byID map[int]*models.Assignment
}

func newFakeAssignments() *fakeAssignments {
	return &fakeAssignments{byID: make(map[int]*models.Assignment)}
}

func (a *fakeAssignments) Create(_ context.Context, assignment *models.Assignment) error {
	if err := a.fail.check("Create"); err != nil {
		return err
	}
	if _, exists := a.byID[assignment.ID]; exists {
		return apperrors.Conflictf("assignment %d already exists", assignment.ID)
	}
	copied := *assignment
	a.byID[assignment.ID] = &copied
	return nil
}

func (a *fakeAssignments) GetByID(_ context.Context, id int) (*models.Assignment, error) {
	if err := a.fail.check("GetByID"); err != nil {
		return nil, err
	}
	assignment, ok := a.byID[id]
	if !ok {
		return nil, apperrors.NotFoundf("assignment %d not found", id)
	}
	copied := *assignment
	return &copied, nil
}

func (a *fakeAssignments) Update(_ context.Context, assignment *models.Assignment) error {
	if err := a.fail.check("Update"); err != nil {
		return err
	}
	if _, ok := a.byID[assignment.ID]; !ok {
		return apperrors.NotFoundf("assignment %d not found", assignment.ID)
	}
	copied := *assignment
	a.byID[assignment.ID] = &copied
	return nil
}

func (a *fakeAssignments) Delete(_ context.Context, id int) error {
	if err := a.fail.check("Delete"); err != nil {
		return err
	}
	delete(a.byID, id)
	return nil
}

// harness bundles the fakes behind a Provisioner.
type harness struct {
	provisioner *Provisioner
	git         *fakeGit
	secrets     *fakeSecrets
	courses     *fakeCourses
	users       *fakeUsers
	passwords   *fakePasswords
	assignments *fakeAssignments
}

func newHarness() *harness {
	h := &harness{
		git:         newFakeGit(),
		secrets:     newFakeSecrets(),
		courses:     &fakeCourses{},
		users:       newFakeUsers(),
		passwords:   newFakePasswords(),
		assignments: newFakeAssignments(),
	}
	h.provisioner = New(
		h.courses, h.users, h.passwords, h.assignments,
		h.git, h.secrets, saga.NewMemoryStore(),
	)
	return h
}
