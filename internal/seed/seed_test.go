package seed

import (
	"context"
	"testing"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
	"opcdiary/internal/repository"
	"opcdiary/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeeder(t *testing.T, opts Options) (*Seeder, *service.Services, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemoryStore(kvstore.Options{})
	dir, err := service.LoadDirectory()
	require.NoError(t, err)
	svcs := service.New(repository.New(store, codec.JSON{}), service.Options{
		Directory: dir,
		Diary:     service.DiaryOptions{PublishDelay: -1},
	})
	return NewSeeder(store, svcs, opts), svcs, store
}

func TestSeeder_Run(t *testing.T) {
	ctx := context.Background()
	s, svcs, _ := newSeeder(t, Options{NumUsers: 4, EntriesPerProject: 3, PostsPerUser: 1, Seed: 42})

	res, err := s.Run(ctx)
	require.NoError(t, err)
	require.Len(t, res.Users, 4)
	assert.Equal(t, 4, res.Projects)
	assert.Equal(t, 12, res.Entries)
	assert.Equal(t, 4, res.Friendships)
	assert.Equal(t, 4*2+2*2, res.Messages)
	assert.Equal(t, 4, res.Posts)

	for _, name := range res.Users {
		u, err := svcs.Users.Authenticate(ctx, name, DefaultPassword)
		require.NoError(t, err, name)
		assert.NotEmpty(t, u.Avatar)

		book := svcs.Diary.Load(ctx, name)
		require.Len(t, book.Projects(), 1)
		p := book.Projects()[0]
		assert.Len(t, p.Entries, 3)
		assert.NotEqual(t, "$0", p.Stats.Cost)
		assert.NotEqual(t, "$0", p.Stats.Profit)
		assert.Equal(t, models.StageGrowth, p.Stats.Stage)

		assert.Len(t, svcs.Graph.Friends(ctx, name), 2, name)
	}

	thread, err := svcs.Chat.OpenPeerThread(ctx, res.Users[0], res.Users[1])
	require.NoError(t, err)
	assert.Len(t, thread, 2)

	mine := svcs.Forum.List(ctx, "", res.Users[0])
	assert.Len(t, mine, 1)
}

func TestSeeder_TwoUsersMakeOneFriendship(t *testing.T) {
	s, svcs, _ := newSeeder(t, Options{NumUsers: 2, Seed: 7})
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Friendships)
	assert.Equal(t, []string{res.Users[1]}, svcs.Graph.Friends(context.Background(), res.Users[0]))
}

func TestSeeder_CleanWipesPreviousRun(t *testing.T) {
	ctx := context.Background()
	s, svcs, store := newSeeder(t, Options{NumUsers: 3, Seed: 1})
	_, err := s.Run(ctx)
	require.NoError(t, err)

	again := NewSeeder(store, svcs, Options{NumUsers: 2, Seed: 2, Clean: true})
	res, err := again.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, svcs.Users.List(ctx), 2)
	assert.ElementsMatch(t, res.Users, names(svcs.Users.List(ctx)))
}

func TestFounder(t *testing.T) {
	s, _, _ := newSeeder(t, Options{Password: "s3cret"})
	f := s.Founder()
	assert.NotEmpty(t, f.CompanyName)
	assert.Equal(t, "s3cret", f.Password)
	assert.Equal(t, service.AvatarFallback(f.CompanyName), f.Avatar)
}
