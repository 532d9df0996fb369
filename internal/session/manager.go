// Package session tracks who is logged in and whose diary is on screen for
// one client context, independent of what is persisted.
package session

import (
	"context"
	"sync"
	"time"

	"opcdiary/internal/models"
	"opcdiary/internal/notifications"
	"opcdiary/internal/observability"
	"opcdiary/internal/service"
)

// Mode describes whose data the session is looking at.
type Mode string

const (
	ModeAnonymous     Mode = "anonymous"
	ModeSelf          Mode = "self"
	ModeGuest         Mode = "guest"
	ModeImpersonating Mode = "impersonating"
)

// Options holds the collaborators shared by every Manager.
type Options struct {
	Services     *service.Services
	Scanner      *notifications.Scanner
	Hub          *notifications.Hub
	Supervisor   *Supervisor
	PollInterval time.Duration
}

// State is a read-only snapshot of a Manager.
type State struct {
	Mode         Mode                  `json:"mode"`
	Self         *models.PublicProfile `json:"self,omitempty"`
	ViewingAs    *models.PublicProfile `json:"viewingAs,omitempty"`
	IsSupervisor bool                  `json:"isSupervisor"`
	CanEdit      bool                  `json:"canEdit"`
	OpenProject  string                `json:"openProject,omitempty"`
	Projects     []models.Project      `json:"projects"`
}

// Manager is the session of one client context. It is safe for concurrent
// use, though a client is expected to drive it sequentially.
type Manager struct {
	svcs       *service.Services
	hub        *notifications.Hub
	supervisor *Supervisor
	poller     *notifications.Poller

	mu           sync.RWMutex
	self         *models.UserProfile
	isSupervisor bool
	viewing      models.UserProfile
	mode         Mode
	book         *service.ProjectBook
	openProject  string
}

// NewManager returns a logged-out Manager.
func NewManager(opts Options) *Manager {
	return &Manager{
		svcs:       opts.Services,
		hub:        opts.Hub,
		supervisor: opts.Supervisor,
		poller:     notifications.NewPoller(opts.Scanner, opts.PollInterval),
		mode:       ModeAnonymous,
	}
}

// Hydrate returns the profile to prefill the login form with.
func (m *Manager) Hydrate(ctx context.Context) (models.PublicProfile, bool) {
	u, ok := m.svcs.Users.Remembered(ctx)
	if !ok {
		return models.PublicProfile{}, false
	}
	return u.Public(), true
}

// Login checks the supervisor credential first and then the stored users.
// Any failure is models.ErrAuth.
func (m *Manager) Login(ctx context.Context, name, password string) (State, error) {
	if m.supervisor.Matches(name, password) {
		m.enter(ctx, SupervisorProfile(), true)
		observability.GlobalLogger.InfoContext(ctx, "supervisor logged in")
		return m.State(), nil
	}

	u, err := m.svcs.Users.Authenticate(ctx, name, password)
	if err != nil {
		return State{}, err
	}
	m.enter(ctx, u, false)
	// Failing to remember the user only affects the next login prefill.
	if err := m.svcs.Users.MarkActive(ctx, u.CompanyName); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to remember last active user",
			"user", u.CompanyName, "error", err)
	}
	return m.State(), nil
}

// CompleteOnboarding registers profile and logs it in. A quota error still
// logs the new user in and is returned so the caller can warn about it.
func (m *Manager) CompleteOnboarding(ctx context.Context, profile models.UserProfile) (State, error) {
	u, err := m.svcs.Users.Register(ctx, profile)
	if err != nil && !models.IsQuota(err) {
		return State{}, err
	}
	m.enter(ctx, u, false)
	return m.State(), err
}

func (m *Manager) enter(ctx context.Context, self models.UserProfile, supervisor bool) {
	m.mu.Lock()
	if m.self != nil && m.hub != nil {
		m.hub.Unregister(m.self.CompanyName, m.poller)
	}
	m.self = &self
	m.isSupervisor = supervisor
	m.mode = ModeSelf
	m.viewing = self
	m.book = m.svcs.Diary.Load(ctx, self.CompanyName)
	m.openProject = ""
	m.mu.Unlock()

	m.poller.Start(ctx, notifications.Identity{Name: self.CompanyName, Supervisor: supervisor})
	if m.hub != nil {
		m.hub.Register(self.CompanyName, m.poller)
	}
}

// Logout stops the poller, forgets the last active user and resets the
// session. It is a no-op when nobody is logged in.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	self := m.self
	m.self = nil
	m.isSupervisor = false
	m.mode = ModeAnonymous
	m.viewing = models.UserProfile{}
	m.book = nil
	m.openProject = ""
	m.mu.Unlock()

	if self == nil {
		return nil
	}
	if m.hub != nil {
		m.hub.Unregister(self.CompanyName, m.poller)
	}
	m.poller.Stop()
	return m.svcs.Users.ForgetActive(ctx)
}

// VisitGuest views another diary: a registered user or a simulated
// counterparty from the directory.
func (m *Manager) VisitGuest(ctx context.Context, name string) (State, error) {
	if _, err := m.requireLogin(); err != nil {
		return State{}, err
	}
	target, err := m.svcs.Users.Get(ctx, name)
	if err != nil {
		g, ok := m.svcs.Graph.Directory().Lookup(name)
		if !ok {
			return State{}, err
		}
		target = m.svcs.Graph.Directory().Profile(g)
	}
	m.switchView(ctx, target, ModeGuest)
	return m.State(), nil
}

// Impersonate lets the supervisor view a user's diary and mailbox.
func (m *Manager) Impersonate(ctx context.Context, name string) (State, error) {
	if !m.IsSupervisor() {
		return State{}, models.NewForbiddenError("Only the supervisor can impersonate users")
	}
	target, err := m.svcs.Users.Get(ctx, name)
	if err != nil {
		return State{}, err
	}
	m.switchView(ctx, target, ModeImpersonating)
	return m.State(), nil
}

// ReturnHome views the logged-in identity's own diary again.
func (m *Manager) ReturnHome(ctx context.Context) (State, error) {
	self, err := m.requireLogin()
	if err != nil {
		return State{}, err
	}
	m.switchView(ctx, self, ModeSelf)
	return m.State(), nil
}

// switchView reloads projects for target and drops the open project.
func (m *Manager) switchView(ctx context.Context, target models.UserProfile, mode Mode) {
	book := m.svcs.Diary.Load(ctx, target.CompanyName)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewing = target
	m.mode = mode
	m.book = book
	m.openProject = ""
}

// Reload re-reads the viewed diary from the store.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.RLock()
	owner := m.viewing.CompanyName
	loggedIn := m.self != nil
	m.mu.RUnlock()
	if !loggedIn {
		return models.ErrNotLoggedIn
	}
	book := m.svcs.Diary.Load(ctx, owner)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.viewing.CompanyName == owner {
		m.book = book
	}
	return nil
}

// OpenProject selects a project of the viewed diary.
func (m *Manager) OpenProject(id string) (models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.book == nil {
		return models.Project{}, models.ErrNotLoggedIn
	}
	p, ok := m.book.Project(id)
	if !ok {
		return models.Project{}, models.NewNotFoundError("Project", id)
	}
	m.openProject = id
	return p, nil
}

// CloseProject clears the open project.
func (m *Manager) CloseProject() {
	m.mu.Lock()
	m.openProject = ""
	m.mu.Unlock()
}

// CanEdit is true only for a real user viewing their own diary.
func (m *Manager) CanEdit() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.canEditLocked()
}

func (m *Manager) canEditLocked() bool {
	return m.self != nil && !m.isSupervisor && m.mode == ModeSelf
}

// EditableBook returns the diary for a structural mutation.
func (m *Manager) EditableBook() (*service.ProjectBook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.self == nil {
		return nil, models.ErrNotLoggedIn
	}
	if !m.canEditLocked() {
		return nil, models.NewForbiddenError("You can only edit your own diary")
	}
	return m.book, nil
}

// CommentContext returns the viewed diary and the author a comment on it is
// posted as. Comments are allowed from any view.
func (m *Manager) CommentContext() (*service.ProjectBook, service.CommentAuthor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.self == nil {
		return nil, service.CommentAuthor{}, models.ErrNotLoggedIn
	}
	return m.book, service.CommentAuthor{
		Name:    m.self.CompanyName,
		Avatar:  m.self.Avatar,
		IsOwner: m.self.CompanyName == m.viewing.CompanyName,
	}, nil
}

// Actor returns the logged-in identity.
func (m *Manager) Actor() (service.Actor, error) {
	self, err := m.requireLogin()
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{Name: self.CompanyName, Supervisor: m.IsSupervisor()}, nil
}

// Profile returns the logged-in identity's profile.
func (m *Manager) Profile() (models.UserProfile, error) {
	return m.requireLogin()
}

// UpdateProfile edits the logged-in user's own profile and refreshes the
// session copy. The copy is refreshed on a quota error too.
func (m *Manager) UpdateProfile(ctx context.Context, patch models.ProfilePatch) (models.UserProfile, error) {
	actor, err := m.Actor()
	if err != nil {
		return models.UserProfile{}, err
	}
	if actor.Supervisor {
		return models.UserProfile{}, models.NewForbiddenError("The supervisor profile cannot be edited")
	}
	u, err := m.svcs.Users.UpdateProfile(ctx, actor, actor.Name, patch)
	if err != nil && !models.IsQuota(err) {
		return models.UserProfile{}, err
	}

	m.mu.Lock()
	if m.self != nil && m.self.CompanyName == u.CompanyName {
		m.self = &u
		if m.viewing.CompanyName == u.CompanyName {
			m.viewing = u
		}
	}
	m.mu.Unlock()
	return u, err
}

// Viewing returns the name of the diary on screen.
func (m *Manager) Viewing() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewing.CompanyName
}

// IsSupervisor reports whether the master credential is logged in.
func (m *Manager) IsSupervisor() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.self != nil && m.isSupervisor
}

// Notifications is the badge source of this session.
func (m *Manager) Notifications() notifications.Source {
	return m.poller
}

// Nudge asks the poller to rescan now.
func (m *Manager) Nudge() {
	m.poller.Nudge()
}

// State returns a snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := State{
		Mode:         m.mode,
		IsSupervisor: m.isSupervisor,
		CanEdit:      m.canEditLocked(),
		OpenProject:  m.openProject,
		Projects:     []models.Project{},
	}
	if m.self != nil {
		self := m.self.Public()
		viewing := m.viewing.Public()
		st.Self = &self
		st.ViewingAs = &viewing
	}
	if m.book != nil {
		st.Projects = m.book.Projects()
	}
	return st
}

func (m *Manager) requireLogin() (models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.self == nil {
		return models.UserProfile{}, models.ErrNotLoggedIn
	}
	return *m.self, nil
}

// Close releases the poller. The store is untouched.
func (m *Manager) Close() {
	m.mu.Lock()
	self := m.self
	m.mu.Unlock()
	if self != nil && m.hub != nil {
		m.hub.Unregister(self.CompanyName, m.poller)
	}
	m.poller.Stop()
}
