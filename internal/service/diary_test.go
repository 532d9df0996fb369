package service

import (
	"context"
	"testing"
	"time"

	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
	"opcdiary/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiaryService_StatsAccrual(t *testing.T) {
	ctx := context.Background()
	svcs, repos, _ := newTestServices(t, 0)
	book := svcs.Diary.Load(ctx, "Acme")

	p, err := svcs.Diary.CreateProject(ctx, book, "Rocket", "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultProjectDescription, p.Description)
	assert.Equal(t, models.DefaultStats(), p.Stats)

	_, err = svcs.Diary.PublishEntry(ctx, book, p.ID, EntryInput{Content: "cost 50"})
	require.NoError(t, err)
	p, err = svcs.Diary.PublishEntry(ctx, book, p.ID, EntryInput{Content: "profit 200"})
	require.NoError(t, err)

	assert.Equal(t, "$50", p.Stats.Cost)
	assert.Equal(t, "$200", p.Stats.Profit)
	require.Len(t, p.Entries, 2)
	assert.Equal(t, "profit 200", p.Entries[0].Content, "newest first")
	assert.Equal(t, testNow.UnixMilli(), p.Entries[0].Timestamp)
	assert.Equal(t, "0d", p.Stats.TimeSpent)

	stored := repos.Projects.Load(ctx, "Acme")
	require.Len(t, stored, 1)
	assert.Equal(t, p, stored[0])
}

func TestDiaryService_PublishAdvancesStage(t *testing.T) {
	ctx := context.Background()
	svcs, _, _ := newTestServices(t, 0)
	book := svcs.Diary.Load(ctx, "Acme")
	p, err := svcs.Diary.CreateProject(ctx, book, "Rocket", "to the moon")
	require.NoError(t, err)

	p, err = svcs.Diary.PublishEntry(ctx, book, p.ID, EntryInput{Content: "We launched today and earned $1,000"})
	require.NoError(t, err)
	assert.Equal(t, models.StageLaunched, p.Stats.Stage)
	assert.Equal(t, "$1,000", p.Stats.Profit)

	p, err = svcs.Diary.PublishEntry(ctx, book, p.ID, EntryInput{Content: "back to coding"})
	require.NoError(t, err)
	assert.Equal(t, models.StageLaunched, p.Stats.Stage)
}

func TestDiaryService_PublishValidation(t *testing.T) {
	ctx := context.Background()
	svcs, _, _ := newTestServices(t, 0)
	book := svcs.Diary.Load(ctx, "Acme")
	p, err := svcs.Diary.CreateProject(ctx, book, "Rocket", "")
	require.NoError(t, err)

	_, err = svcs.Diary.PublishEntry(ctx, book, p.ID, EntryInput{Content: "  ", Images: []string{""}})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svcs.Diary.PublishEntry(ctx, book, "missing", EntryInput{Content: "hi"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	p, err = svcs.Diary.PublishEntry(ctx, book, p.ID, EntryInput{Images: []string{"data:image/webp;base64,AAAA"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"data:image/webp;base64,AAAA"}, p.Entries[0].Images)

	_, err = svcs.Diary.CreateProject(ctx, book, " ", "")
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestDiaryService_PublishHonorsCancellation(t *testing.T) {
	_, repos, _ := newTestServices(t, 0)
	diary := NewDiaryService(repos.Projects, nil, DiaryOptions{PublishDelay: time.Hour, Clock: fixedClock})
	ctx, cancel := context.WithCancel(context.Background())
	book := diary.Load(ctx, "Acme")
	p, err := diary.CreateProject(ctx, book, "Rocket", "")
	require.NoError(t, err)

	cancel()
	_, err = diary.PublishEntry(ctx, book, p.ID, EntryInput{Content: "cost 5"})
	assert.ErrorIs(t, err, context.Canceled)

	got, ok := book.Project(p.ID)
	require.True(t, ok)
	assert.Empty(t, got.Entries)
}

func TestDiaryService_QuotaKeepsMirror(t *testing.T) {
	ctx := context.Background()
	svcs, repos, _ := newTestServices(t, 1)
	book := svcs.Diary.Load(ctx, "Acme")

	p, err := svcs.Diary.CreateProject(ctx, book, "Rocket", "")
	require.Error(t, err)
	assert.True(t, models.IsQuota(err))
	assert.NotEmpty(t, p.ID)

	assert.Len(t, book.Projects(), 1)
	assert.Empty(t, repos.Projects.Load(ctx, "Acme"))
}

func TestDiaryService_CommentFromStaleBookKeepsNewerEntries(t *testing.T) {
	ctx := context.Background()
	svcs, repos, _ := newTestServices(t, 0)
	owner := svcs.Diary.Load(ctx, "Acme")
	p, err := svcs.Diary.CreateProject(ctx, owner, "Rocket", "")
	require.NoError(t, err)
	p, err = svcs.Diary.PublishEntry(ctx, owner, p.ID, EntryInput{Content: "first"})
	require.NoError(t, err)
	firstID := p.Entries[0].ID

	visitor := svcs.Diary.Load(ctx, "Acme")
	_, err = svcs.Diary.PublishEntry(ctx, owner, p.ID, EntryInput{Content: "second cost 50"})
	require.NoError(t, err)

	_, err = svcs.Diary.AddComment(ctx, visitor, p.ID, firstID, CommentAuthor{Name: "Zed"}, "nice")
	require.NoError(t, err)

	stored := repos.Projects.Load(ctx, "Acme")
	require.Len(t, stored, 1)
	require.Len(t, stored[0].Entries, 2)
	assert.Equal(t, "$50", stored[0].Stats.Cost)
	assert.Equal(t, "second cost 50", stored[0].Entries[0].Content)
	require.Len(t, stored[0].Entries[1].Comments, 1)
	assert.Equal(t, "Zed", stored[0].Entries[1].Comments[0].Author)

	// The owner's next write keeps the visitor's comment.
	_, err = svcs.Diary.UpdateStats(ctx, owner, p.ID, StatStage, "Pivoting")
	require.NoError(t, err)
	stored = repos.Projects.Load(ctx, "Acme")
	assert.Len(t, stored[0].Entries[1].Comments, 1)
	got, _ := owner.Project(p.ID)
	assert.Len(t, got.Entries[1].Comments, 1, "the mirror follows the store")
}

type flakyProjectRepo struct {
	repository.ProjectRepository
	fail bool
}

func (r *flakyProjectRepo) Save(ctx context.Context, owner string, projects []models.Project) error {
	if r.fail {
		return models.NewQuotaError("projects", kvstore.ErrQuotaExceeded)
	}
	return r.ProjectRepository.Save(ctx, owner, projects)
}

func TestDiaryService_UnsavedMirrorIsNotReread(t *testing.T) {
	ctx := context.Background()
	_, repos, _ := newTestServices(t, 0)
	repo := &flakyProjectRepo{ProjectRepository: repos.Projects}
	diary := NewDiaryService(repo, nil, DiaryOptions{PublishDelay: -1, Clock: fixedClock})

	book := diary.Load(ctx, "Acme")
	p, err := diary.CreateProject(ctx, book, "Rocket", "")
	require.NoError(t, err)

	repo.fail = true
	_, err = diary.PublishEntry(ctx, book, p.ID, EntryInput{Content: "first"})
	assert.True(t, models.IsQuota(err))
	_, err = diary.PublishEntry(ctx, book, p.ID, EntryInput{Content: "second"})
	assert.True(t, models.IsQuota(err))

	got, _ := book.Project(p.ID)
	assert.Len(t, got.Entries, 2, "unsaved entries survive later mutations")
	assert.Empty(t, repos.Projects.Load(ctx, "Acme")[0].Entries)

	repo.fail = false
	_, err = diary.UpdateStats(ctx, book, p.ID, StatStage, "Growth")
	require.NoError(t, err)
	assert.Len(t, repos.Projects.Load(ctx, "Acme")[0].Entries, 2)
}

func TestDiaryService_EditDeleteCommentStats(t *testing.T) {
	ctx := context.Background()
	svcs, repos, _ := newTestServices(t, 0)
	book := svcs.Diary.Load(ctx, "Acme")
	p, err := svcs.Diary.CreateProject(ctx, book, "Rocket", "")
	require.NoError(t, err)
	p, err = svcs.Diary.PublishEntry(ctx, book, p.ID, EntryInput{Content: "first"})
	require.NoError(t, err)
	entryID := p.Entries[0].ID

	p, err = svcs.Diary.EditEntry(ctx, book, p.ID, entryID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", p.Entries[0].Content)

	_, err = svcs.Diary.EditEntry(ctx, book, p.ID, "nope", "x")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	c, err := svcs.Diary.AddComment(ctx, book, p.ID, entryID, CommentAuthor{Name: "Zed"}, "nice")
	require.NoError(t, err)
	assert.Equal(t, "Zed", c.Author)
	assert.False(t, c.IsOwner)
	assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=Guest", c.Avatar)

	_, err = svcs.Diary.AddComment(ctx, book, p.ID, entryID, CommentAuthor{Name: "Acme", Avatar: "a.png", IsOwner: true}, "thanks")
	require.NoError(t, err)

	got, _ := book.Project(p.ID)
	require.Len(t, got.Entries[0].Comments, 2)
	assert.Equal(t, "nice", got.Entries[0].Comments[0].Content)
	assert.True(t, got.Entries[0].Comments[1].IsOwner)

	p, err = svcs.Diary.UpdateStats(ctx, book, p.ID, StatStage, "Pivoting")
	require.NoError(t, err)
	assert.Equal(t, "Pivoting", p.Stats.Stage)
	_, err = svcs.Diary.UpdateStats(ctx, book, p.ID, "mood", "great")
	assert.True(t, models.HasCode(err, models.CodeValidation))

	p, err = svcs.Diary.DeleteEntry(ctx, book, p.ID, entryID)
	require.NoError(t, err)
	assert.Empty(t, p.Entries)
	assert.Equal(t, "0d", p.Stats.TimeSpent)

	stored := repos.Projects.Load(ctx, "Acme")
	require.Len(t, stored, 1)
	assert.Empty(t, stored[0].Entries)
	assert.Equal(t, "Pivoting", stored[0].Stats.Stage)
}

func TestProjectBook_ProjectsIsACopy(t *testing.T) {
	book := NewProjectBook("Acme", nil)
	assert.Equal(t, "Acme", book.Owner())
	assert.Empty(t, book.Projects())

	book = NewProjectBook("Acme", []models.Project{{ID: "p1", Name: "a"}})
	ps := book.Projects()
	ps[0].Name = "changed"
	got, ok := book.Project("p1")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)
}
