package repository

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/forum_seed.yaml
var forumSeedYAML []byte

// ForumRepository stores the application-wide forum, newest first.
type ForumRepository interface {
	// Load returns the stored posts, or the seed posts when the key has never
	// been written.
	Load(ctx context.Context) []models.ForumPost
	Save(ctx context.Context, posts []models.ForumPost) error
}

type forumRepository struct {
	posts *family[[]models.ForumPost]
	now   func() time.Time
}

// NewForumRepository returns a new ForumRepository implementation.
func NewForumRepository(store kvstore.Store, c codec.Codec) ForumRepository {
	return NewForumRepositoryWithClock(store, c, time.Now)
}

// NewForumRepositoryWithClock is NewForumRepository with an injected clock
// for seed timestamps.
func NewForumRepositoryWithClock(store kvstore.Store, c codec.Codec, now func() time.Time) ForumRepository {
	return &forumRepository{
		posts: newFamily("forum", store, c, emptySlice[models.ForumPost](), normalizeSlice(func(p *models.ForumPost) { p.Normalize() })),
		now:   now,
	}
}

func (r *forumRepository) Load(ctx context.Context) []models.ForumPost {
	posts, present := r.posts.read(ctx, ForumPostsKey)
	if present {
		return posts
	}
	seed, err := SeedForumPosts(r.now())
	if err != nil {
		r.posts.log.LogDecodeFailure(ctx, ForumPostsKey, err)
		return []models.ForumPost{}
	}
	return seed
}

func (r *forumRepository) Save(ctx context.Context, posts []models.ForumPost) error {
	return r.posts.save(ctx, ForumPostsKey, posts)
}

type seedComment struct {
	models.ForumComment `yaml:",inline"`
	AgeMs               int64 `yaml:"ageMs"`
}

type seedPost struct {
	ID           string             `yaml:"id"`
	AgeMs        int64              `yaml:"ageMs"`
	Author       models.ForumAuthor `yaml:"author"`
	Content      string             `yaml:"content"`
	Category     models.Category    `yaml:"category"`
	Likes        int                `yaml:"likes"`
	LikedBy      []string           `yaml:"likedBy"`
	Comments     int                `yaml:"comments"`
	CommentsList []seedComment      `yaml:"commentsList"`
	Tags         []string           `yaml:"tags"`
}

// SeedForumPosts decodes the embedded first-run posts relative to now.
func SeedForumPosts(now time.Time) ([]models.ForumPost, error) {
	var seeds []seedPost
	if err := yaml.Unmarshal(forumSeedYAML, &seeds); err != nil {
		return nil, fmt.Errorf("decode forum seed: %w", err)
	}
	nowMs := now.UnixMilli()
	posts := make([]models.ForumPost, 0, len(seeds))
	for _, s := range seeds {
		p := models.ForumPost{
			ID:        s.ID,
			Author:    s.Author,
			Content:   s.Content,
			Category:  s.Category,
			Timestamp: nowMs - s.AgeMs,
			Likes:     s.Likes,
			LikedBy:   s.LikedBy,
			Comments:  s.Comments,
			Tags:      s.Tags,
		}
		for _, c := range s.CommentsList {
			fc := c.ForumComment
			fc.Timestamp = nowMs - c.AgeMs
			p.CommentsList = append(p.CommentsList, fc)
		}
		p.Normalize()
		posts = append(posts, p)
	}
	return posts, nil
}
