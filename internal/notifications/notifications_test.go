package notifications

import (
	"context"
	"testing"
	"time"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
	"opcdiary/internal/repository"
	"opcdiary/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

type fixture struct {
	svcs    *service.Services
	repos   *repository.Repositories
	scanner *Scanner
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := repository.New(kvstore.NewMemoryStore(kvstore.Options{}), codec.JSON{})
	svcs := service.New(repos, service.Options{Diary: service.DiaryOptions{PublishDelay: -1}})
	for _, u := range users {
		require.NoError(t, repos.Users.Save(ctx, models.UserProfile{CompanyName: u, Password: "x"}))
	}
	return &fixture{svcs: svcs, repos: repos, scanner: NewScanner(repos.Messages, svcs.Graph)}
}

func (f *fixture) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svcs.Graph.ToggleFollow(ctx, a, b)
	require.NoError(t, err)
	_, err = f.svcs.Graph.ToggleFollow(ctx, b, a)
	require.NoError(t, err)
}

func TestScanner_UnreadPeerBadge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")
	f.befriend(t, "A", "B")
	a := Identity{Name: "A"}
	b := Identity{Name: "B"}

	_, err := f.svcs.Chat.SendPeer(ctx, "A", "B", "ping")
	require.NoError(t, err)

	vmB := f.scanner.Scan(ctx, b)
	assert.Equal(t, []string{"A"}, vmB.UnreadPeers)
	assert.True(t, vmB.HasUnreadPeer("A"))
	assert.Empty(t, f.scanner.Scan(ctx, a).UnreadPeers, "the sender is never notified of their own message")

	_, err = f.svcs.Chat.OpenPeerThread(ctx, "B", "A")
	require.NoError(t, err)
	assert.Empty(t, f.scanner.Scan(ctx, b).UnreadPeers)
	assert.Empty(t, f.scanner.Scan(ctx, a).UnreadPeers)

	// B answers; only the last message counts.
	_, err = f.svcs.Chat.SendPeer(ctx, "B", "A", "pong")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, f.scanner.Scan(ctx, a).UnreadPeers)
	assert.Empty(t, f.scanner.Scan(ctx, b).UnreadPeers)
}

func TestScanner_FriendRequestsAndSupervisor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B", "C")

	_, err := f.svcs.Graph.ToggleFollow(ctx, "B", "A")
	require.NoError(t, err)
	_, err = f.svcs.Graph.ToggleFollow(ctx, "C", "A")
	require.NoError(t, err)
	assert.Equal(t, 2, f.scanner.Scan(ctx, Identity{Name: "A"}).FriendRequestCount)

	_, err = f.svcs.Graph.ToggleFollow(ctx, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, 1, f.scanner.Scan(ctx, Identity{Name: "A"}).FriendRequestCount)

	_, err = f.svcs.Chat.ReplyAsSupervisor(ctx, "A", "status?")
	require.NoError(t, err)
	assert.True(t, f.scanner.Scan(ctx, Identity{Name: "A"}).UnreadSupervisor)

	sup := Identity{Name: service.SupervisorName, Supervisor: true}
	_, err = f.svcs.Graph.ToggleTracking(ctx, "A")
	require.NoError(t, err)
	_, err = f.svcs.Graph.ToggleTracking(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"A": false, "B": false}, f.scanner.Scan(ctx, sup).UnreadByTrackedUser)

	_, err = f.svcs.Chat.SendToSupervisor(ctx, "B", "need help")
	require.NoError(t, err)
	vm := f.scanner.Scan(ctx, sup)
	assert.Equal(t, map[string]bool{"A": false, "B": true}, vm.UnreadByTrackedUser)
	assert.Zero(t, vm.FriendRequestCount)

	_, err = f.svcs.Chat.OpenSupervisorThread(ctx, "B", true)
	require.NoError(t, err)
	assert.False(t, f.scanner.Scan(ctx, sup).UnreadByTrackedUser["B"])
}

func TestPoller_PublishesChangesOnTick(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")
	f.befriend(t, "A", "B")

	p := NewPoller(f.scanner, testPollInterval)
	p.Start(ctx, Identity{Name: "B"})
	defer p.Stop()

	updates, cancel := p.Subscribe()
	defer cancel()
	initial := <-updates
	assert.Empty(t, initial.UnreadPeers)

	_, err := f.svcs.Chat.SendPeer(ctx, "A", "B", "ping")
	require.NoError(t, err)

	select {
	case vm := <-updates:
		assert.Equal(t, []string{"A"}, vm.UnreadPeers)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no update after a new message")
	}
	assert.Equal(t, []string{"A"}, p.Latest().UnreadPeers)

	// No change, no publish.
	assert.Never(t, func() bool {
		select {
		case <-updates:
			return true
		default:
			return false
		}
	}, 5*testPollInterval, testPollInterval)
}

func TestPoller_StopClosesSubscribersAndResets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")
	_, err := f.svcs.Graph.ToggleFollow(ctx, "A", "B")
	require.NoError(t, err)

	p := NewPoller(f.scanner, time.Hour)
	p.Start(ctx, Identity{Name: "B"})
	assert.Equal(t, 1, p.Latest().FriendRequestCount, "first scan runs synchronously")
	id, running := p.Identity()
	assert.True(t, running)
	assert.Equal(t, "B", id.Name)

	updates, _ := p.Subscribe()
	<-updates

	p.Stop()
	_, ok := <-updates
	assert.False(t, ok)
	assert.Zero(t, p.Latest().FriendRequestCount)
	_, running = p.Identity()
	assert.False(t, running)

	late, _ := p.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribing to a stopped poller yields a closed channel")

	p.Stop()
}

func TestPoller_NudgeRescansBeforeTick(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")
	f.befriend(t, "A", "B")

	p := NewPoller(f.scanner, time.Hour)
	p.Start(ctx, Identity{Name: "B"})
	defer p.Stop()

	hub := NewHub()
	hub.Register("B", p)
	assert.Equal(t, 1, hub.Count())

	_, err := f.svcs.Chat.SendPeer(ctx, "A", "B", "ping")
	require.NoError(t, err)
	hub.Nudge("B")

	assert.Eventually(t, func() bool {
		return p.Latest().HasUnreadPeer("A")
	}, testEventuallyTimeout, testPollInterval)

	hub.Unregister("B", p)
	assert.Zero(t, hub.Count())
}

func TestPoller_RestartSwitchesIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")
	_, err := f.svcs.Graph.ToggleFollow(ctx, "A", "B")
	require.NoError(t, err)

	p := NewPoller(f.scanner, time.Hour)
	p.Start(ctx, Identity{Name: "B"})
	assert.Equal(t, 1, p.Latest().FriendRequestCount)

	p.Start(ctx, Identity{Name: "A"})
	defer p.Stop()
	assert.Zero(t, p.Latest().FriendRequestCount)
}

func TestNotifier_LocalFallback(t *testing.T) {
	hub := NewHub()
	n := NewNotifier(nil, hub)
	assert.NoError(t, n.PublishUser(context.Background(), "A"))
	assert.NoError(t, n.PublishBroadcast(context.Background()))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
	assert.Equal(t, "notifications:user:Acme", UserChannel("Acme"))
}

func TestNotifier_RedisNudgesReachHub(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, "A", "B")
	f.befriend(t, "A", "B")
	p := NewPoller(f.scanner, time.Hour)
	p.Start(ctx, Identity{Name: "B"})
	defer p.Stop()

	hub := NewHub()
	hub.Register("B", p)
	n := NewNotifier(rdb, nil)
	require.NoError(t, hub.StartWiring(ctx, n))

	_, err := f.svcs.Chat.SendPeer(ctx, "A", "B", "ping")
	require.NoError(t, err)
	require.NoError(t, n.PublishUser(ctx, "B"))

	assert.Eventually(t, func() bool {
		return p.Latest().HasUnreadPeer("A")
	}, testEventuallyTimeout, testPollInterval)
}
