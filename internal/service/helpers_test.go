package service

import (
	"testing"
	"time"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/repository"

	"github.com/stretchr/testify/require"
)

var testNow = time.UnixMilli(1_800_000_000_000)

func fixedClock() time.Time { return testNow }

func newTestServices(t *testing.T, quota int64) (*Services, *repository.Repositories, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemoryStore(kvstore.Options{Quota: quota})
	repos := repository.New(store, codec.JSON{})
	dir, err := LoadDirectory()
	require.NoError(t, err)
	svcs := New(repos, Options{
		Directory: dir,
		Diary:     DiaryOptions{PublishDelay: -1},
		Clock:     fixedClock,
	})
	return svcs, repos, store
}
