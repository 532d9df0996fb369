package session

import (
	"context"
	"testing"
	"time"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
	"opcdiary/internal/notifications"
	"opcdiary/internal/repository"
	"opcdiary/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	opts  Options
	repos *repository.Repositories
}

func newHarness(t *testing.T, quota int64) *harness {
	t.Helper()
	repos := repository.New(kvstore.NewMemoryStore(kvstore.Options{Quota: quota}), codec.JSON{})
	svcs := service.New(repos, service.Options{
		Directory: service.NewDirectory(models.Group{ID: "u1", Name: "DevSarah", Type: models.GroupTypeUser, Description: "Full-stack"}),
		Diary:     service.DiaryOptions{PublishDelay: -1},
	})
	sup, err := NewSupervisor(DefaultSupervisorName, DefaultSupervisorPassword, bcrypt.MinCost)
	require.NoError(t, err)
	return &harness{
		repos: repos,
		opts: Options{
			Services:     svcs,
			Scanner:      notifications.NewScanner(repos.Messages, svcs.Graph),
			Hub:          notifications.NewHub(),
			Supervisor:   sup,
			PollInterval: time.Hour,
		},
	}
}

func (h *harness) register(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, h.repos.Users.Save(context.Background(), models.UserProfile{CompanyName: name, Password: "pw"}))
}

func (h *harness) manager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(h.opts)
	t.Cleanup(m.Close)
	return m
}

func TestSupervisor_Matches(t *testing.T) {
	sup, err := NewSupervisor("daniel", "secret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, sup.Matches("daniel", "secret"))
	assert.True(t, sup.Matches(" DANIEL ", "secret"))
	assert.False(t, sup.Matches("daniel", "Secret"))
	assert.False(t, sup.Matches("dan", "secret"))

	var none *Supervisor
	assert.False(t, none.Matches("daniel", "secret"))

	_, err = NewSupervisor("", "x", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestManager_LoginPrefersSupervisor(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.register(t, "Acme")
	m := h.manager(t)

	st, err := m.Login(ctx, "Daniel", DefaultSupervisorPassword)
	require.NoError(t, err)
	assert.True(t, st.IsSupervisor)
	assert.False(t, st.CanEdit)
	assert.Equal(t, service.SupervisorName, st.Self.CompanyName)
	assert.Equal(t, "System Admin", st.Self.Title)

	// The synthetic profile is never stored and never remembered.
	_, ok := h.repos.Users.Find(ctx, service.SupervisorName)
	assert.False(t, ok)
	_, ok = h.repos.Users.LastActive(ctx)
	assert.False(t, ok)

	id, running := m.poller.Identity()
	assert.True(t, running)
	assert.True(t, id.Supervisor)
}

func TestManager_SupervisorLogoutForgetsLastActive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.register(t, "Acme")
	m := h.manager(t)
	require.NoError(t, h.repos.Users.SetLastActive(ctx, "Acme"))

	_, err := m.Login(ctx, "Daniel", DefaultSupervisorPassword)
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))

	_, ok := h.repos.Users.LastActive(ctx)
	assert.False(t, ok)
	remembered, ok := m.Hydrate(ctx)
	require.True(t, ok)
	assert.Equal(t, "Acme", remembered.CompanyName, "hydrate falls back to the latest registration")
}

func TestManager_LoginUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.register(t, "Acme")
	m := h.manager(t)

	_, err := m.Login(ctx, "acme", "wrong")
	assert.ErrorIs(t, err, models.ErrAuth)
	_, err = m.Login(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, models.ErrAuth)
	assert.Equal(t, ModeAnonymous, m.State().Mode)

	st, err := m.Login(ctx, " ACME ", "pw")
	require.NoError(t, err)
	assert.Equal(t, ModeSelf, st.Mode)
	assert.True(t, st.CanEdit)
	assert.Equal(t, "Acme", st.Self.CompanyName)

	last, ok := h.repos.Users.LastActive(ctx)
	require.True(t, ok)
	assert.Equal(t, "Acme", last)
	assert.Equal(t, 1, h.opts.Hub.Count())
}

func TestManager_HydrateAndLogout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	m := h.manager(t)

	_, ok := m.Hydrate(ctx)
	assert.False(t, ok)

	h.register(t, "Acme")
	h.register(t, "Zed")
	remembered, ok := m.Hydrate(ctx)
	require.True(t, ok)
	assert.Equal(t, "Zed", remembered.CompanyName, "falls back to the latest registration")

	_, err := m.Login(ctx, "Acme", "pw")
	require.NoError(t, err)
	remembered, _ = m.Hydrate(ctx)
	assert.Equal(t, "Acme", remembered.CompanyName)

	updates, _ := m.Notifications().Subscribe()
	<-updates

	require.NoError(t, m.Logout(ctx))
	_, open := <-updates
	assert.False(t, open, "logout stops the poller")
	assert.Equal(t, ModeAnonymous, m.State().Mode)
	assert.Nil(t, m.State().Self)
	_, ok = h.repos.Users.LastActive(ctx)
	assert.False(t, ok)
	assert.Zero(t, h.opts.Hub.Count())

	require.NoError(t, m.Logout(ctx))
}

func TestManager_CompleteOnboarding(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.register(t, "Acme")
	m := h.manager(t)

	_, err := m.CompleteOnboarding(ctx, models.UserProfile{CompanyName: "acme", Password: "x"})
	assert.True(t, models.HasCode(err, models.CodeValidation))
	assert.Equal(t, ModeAnonymous, m.State().Mode)

	st, err := m.CompleteOnboarding(ctx, models.UserProfile{CompanyName: " Rocket ", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Rocket", st.Self.CompanyName)
	assert.True(t, st.CanEdit)
}

func TestManager_OnboardingQuotaStillLogsIn(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 32)
	m := h.manager(t)

	st, err := m.CompleteOnboarding(ctx, models.UserProfile{CompanyName: "Acme", Password: "x", Description: "a rather long description"})
	require.Error(t, err)
	assert.True(t, models.IsQuota(err))
	assert.Equal(t, "Acme", st.Self.CompanyName)
}

func TestManager_SwitchingViewResetsOpenProject(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.register(t, "Acme")
	h.register(t, "Zed")
	require.NoError(t, h.repos.Projects.Save(ctx, "Zed", []models.Project{{ID: "z1", Name: "Zed's"}}))
	m := h.manager(t)

	_, err := m.VisitGuest(ctx, "Zed")
	assert.ErrorIs(t, err, models.ErrNotLoggedIn)

	_, err = m.Login(ctx, "Acme", "pw")
	require.NoError(t, err)
	book, err := m.EditableBook()
	require.NoError(t, err)
	p, err := h.opts.Services.Diary.CreateProject(ctx, book, "Rocket", "")
	require.NoError(t, err)
	_, err = m.OpenProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, m.State().OpenProject)

	st, err := m.VisitGuest(ctx, "Zed")
	require.NoError(t, err)
	assert.Equal(t, ModeGuest, st.Mode)
	assert.Empty(t, st.OpenProject)
	assert.False(t, st.CanEdit)
	assert.Equal(t, "Zed", st.ViewingAs.CompanyName)
	require.Len(t, st.Projects, 1)
	assert.Equal(t, "z1", st.Projects[0].ID)

	_, err = m.OpenProject(p.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound), "another user's project id is not visible here")
	_, err = m.EditableBook()
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	guestBook, author, err := m.CommentContext()
	require.NoError(t, err)
	assert.Equal(t, "Zed", guestBook.Owner())
	assert.Equal(t, service.CommentAuthor{Name: "Acme"}, author)

	_, err = m.OpenProject("z1")
	require.NoError(t, err)
	st, err = m.ReturnHome(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeSelf, st.Mode)
	assert.Empty(t, st.OpenProject)
	require.Len(t, st.Projects, 1)
	assert.Equal(t, "Rocket", st.Projects[0].Name)

	_, author, err = m.CommentContext()
	require.NoError(t, err)
	assert.True(t, author.IsOwner)
}

func TestManager_VisitSimulatedCounterparty(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.register(t, "Acme")
	m := h.manager(t)
	_, err := m.Login(ctx, "Acme", "pw")
	require.NoError(t, err)

	st, err := m.VisitGuest(ctx, "DevSarah")
	require.NoError(t, err)
	assert.Equal(t, "DevSarah", st.ViewingAs.CompanyName)
	assert.Equal(t, "Full-stack", st.ViewingAs.Description)
	assert.Empty(t, st.Projects)

	_, err = m.VisitGuest(ctx, "Nobody")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.Equal(t, "DevSarah", m.Viewing(), "a failed visit keeps the current view")
}

func TestManager_Impersonate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.register(t, "Acme")
	m := h.manager(t)

	_, err := m.Login(ctx, "Acme", "pw")
	require.NoError(t, err)
	_, err = m.Impersonate(ctx, "Acme")
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	_, err = m.Login(ctx, DefaultSupervisorName, DefaultSupervisorPassword)
	require.NoError(t, err)
	st, err := m.Impersonate(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, ModeImpersonating, st.Mode)
	assert.False(t, st.CanEdit)
	assert.Equal(t, "Acme", st.ViewingAs.CompanyName)

	actor, err := m.Actor()
	require.NoError(t, err)
	assert.Equal(t, service.Actor{Name: service.SupervisorName, Supervisor: true}, actor)

	_, err = m.Impersonate(ctx, "Ghost")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, ModeAnonymous, m.State().Mode)
}

func TestManager_UpdateProfileRefreshesSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.register(t, "Acme")
	m := h.manager(t)

	desc := "Rockets for hire"
	_, err := m.UpdateProfile(ctx, models.ProfilePatch{Description: &desc})
	assert.ErrorIs(t, err, models.ErrNotLoggedIn)

	_, err = m.Login(ctx, "Acme", "pw")
	require.NoError(t, err)
	u, err := m.UpdateProfile(ctx, models.ProfilePatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, u.Description)
	assert.Equal(t, desc, m.State().Self.Description)
	assert.Equal(t, desc, m.State().ViewingAs.Description)

	stored, ok := h.repos.Users.Find(ctx, "Acme")
	require.True(t, ok)
	assert.Equal(t, desc, stored.Description)

	sup := h.manager(t)
	_, err = sup.Login(ctx, DefaultSupervisorName, DefaultSupervisorPassword)
	require.NoError(t, err)
	_, err = sup.UpdateProfile(ctx, models.ProfilePatch{Description: &desc})
	assert.True(t, models.HasCode(err, models.CodeForbidden))
}

func TestManager_Reload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.register(t, "Acme")
	m := h.manager(t)
	assert.ErrorIs(t, m.Reload(ctx), models.ErrNotLoggedIn)

	_, err := m.Login(ctx, "Acme", "pw")
	require.NoError(t, err)
	assert.Empty(t, m.State().Projects)

	require.NoError(t, h.repos.Projects.Save(ctx, "Acme", []models.Project{{ID: "p1", Name: "Written elsewhere"}}))
	require.NoError(t, m.Reload(ctx))
	require.Len(t, m.State().Projects, 1)
}

func TestRegistry_Lifecycle(t *testing.T) {
	h := newHarness(t, 0)
	r := NewRegistry(h.opts, time.Minute)
	now := time.UnixMilli(1_800_000_000_000)
	r.now = func() time.Time { return now }

	id, m := r.Create()
	require.NotEmpty(t, id)
	got, ok := r.Get(id)
	require.True(t, ok)
	assert.Same(t, m, got)

	other, _ := r.Create()
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, r.Len())

	now = now.Add(45 * time.Second)
	_, ok = r.Get(id)
	require.True(t, ok)

	now = now.Add(30 * time.Second)
	_, ok = r.Get(other)
	assert.False(t, ok, "idle past the ttl")
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	r.Remove(id)
	_, ok = r.Get(id)
	assert.False(t, ok)
	assert.Zero(t, r.Len())

	r.Create()
	r.CloseAll()
	assert.Zero(t, r.Len())
}
