package service

import (
	"context"
	"slices"
	"strings"

	"opcdiary/internal/models"
	"opcdiary/internal/repository"
)

// DefaultForumTag is attached to posts created without tags.
const DefaultForumTag = "Discussion"

// PostInput is the editable part of a forum post.
type PostInput struct {
	Content  string          `json:"content"`
	Image    string          `json:"image"`
	Link     string          `json:"link"`
	Category models.Category `json:"category"`
	Tags     []string        `json:"tags"`
}

func (in PostInput) validate() error {
	if strings.TrimSpace(in.Content) == "" && in.Image == "" && strings.TrimSpace(in.Link) == "" {
		return models.NewValidationError("A post needs text, an image or a link")
	}
	if in.Category != "" && !in.Category.Valid() {
		return models.NewValidationError("Unknown category " + string(in.Category))
	}
	return nil
}

// ForumService manages the application-wide forum.
type ForumService struct {
	forum repository.ForumRepository
	clock Clock
}

// NewForumService returns a new ForumService.
func NewForumService(forum repository.ForumRepository, clock Clock) *ForumService {
	return &ForumService{forum: forum, clock: clock}
}

// List returns posts newest first. A non-empty query keeps posts whose
// content, author name or a tag contains it, case-insensitively. A non-empty
// author keeps only that author's posts.
func (s *ForumService) List(ctx context.Context, query, author string) []models.ForumPost {
	posts := s.forum.Load(ctx)
	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.ForumPost{}
	for _, p := range posts {
		if author != "" && p.Author.Name != author {
			continue
		}
		if q != "" && !matchesPost(p, q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesPost(p models.ForumPost, q string) bool {
	if strings.Contains(strings.ToLower(p.Content), q) || strings.Contains(strings.ToLower(p.Author.Name), q) {
		return true
	}
	return slices.ContainsFunc(p.Tags, func(t string) bool {
		return strings.Contains(strings.ToLower(t), q)
	})
}

func authorSnapshot(profile models.UserProfile) models.ForumAuthor {
	a := models.ForumAuthor{
		Name:   profile.CompanyName,
		Avatar: profile.Avatar,
		Title:  profile.Title,
	}
	if a.Avatar == "" {
		a.Avatar = AvatarFallback(profile.CompanyName)
	}
	if a.Title == "" {
		a.Title = models.DefaultForumTitle
	}
	return a
}

// Create puts a new post at the top of the forum.
func (s *ForumService) Create(ctx context.Context, author models.UserProfile, in PostInput) (models.ForumPost, error) {
	if err := in.validate(); err != nil {
		return models.ForumPost{}, err
	}
	category := in.Category
	if category == "" {
		category = models.CategoryGeneral
	}
	tags := nonEmpty(in.Tags)
	if len(tags) == 0 {
		tags = []string{DefaultForumTag}
	}
	post := models.ForumPost{
		ID:           newID(),
		Author:       authorSnapshot(author),
		Content:      in.Content,
		Image:        in.Image,
		Link:         strings.TrimSpace(in.Link),
		Category:     category,
		Timestamp:    s.clock.now().UnixMilli(),
		LikedBy:      []string{},
		CommentsList: []models.ForumComment{},
		Tags:         tags,
	}
	posts := append([]models.ForumPost{post}, s.forum.Load(ctx)...)
	return post, s.forum.Save(ctx, posts)
}

// Edit replaces a post's content fields. Author only.
func (s *ForumService) Edit(ctx context.Context, actor, id string, in PostInput) (models.ForumPost, error) {
	if err := in.validate(); err != nil {
		return models.ForumPost{}, err
	}
	return s.mutate(ctx, id, func(p *models.ForumPost) error {
		if p.Author.Name != actor {
			return models.NewForbiddenError("You can only edit your own posts")
		}
		p.Content = in.Content
		p.Image = in.Image
		p.Link = strings.TrimSpace(in.Link)
		if in.Category != "" {
			p.Category = in.Category
		}
		if tags := nonEmpty(in.Tags); len(tags) > 0 {
			p.Tags = tags
		}
		return nil
	})
}

// Delete removes a post. Author only.
func (s *ForumService) Delete(ctx context.Context, actor, id string) error {
	posts := s.forum.Load(ctx)
	idx := slices.IndexFunc(posts, func(p models.ForumPost) bool { return p.ID == id })
	if idx < 0 {
		return models.NewNotFoundError("Post", id)
	}
	if posts[idx].Author.Name != actor {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.forum.Save(ctx, slices.Delete(posts, idx, idx+1))
}

// ToggleLike likes the post for name, or takes the like back. Toggling twice
// restores the original count.
func (s *ForumService) ToggleLike(ctx context.Context, name, id string) (models.ForumPost, error) {
	return s.mutate(ctx, id, func(p *models.ForumPost) error {
		if idx := slices.Index(p.LikedBy, name); idx >= 0 {
			p.LikedBy = slices.Delete(slices.Clone(p.LikedBy), idx, idx+1)
			p.Likes = max(p.Likes-1, len(p.LikedBy))
		} else {
			p.LikedBy = append(slices.Clone(p.LikedBy), name)
			p.Likes++
		}
		return nil
	})
}

// AddComment appends a comment under a post.
func (s *ForumService) AddComment(ctx context.Context, author models.UserProfile, id, content string) (models.ForumPost, error) {
	if strings.TrimSpace(content) == "" {
		return models.ForumPost{}, models.NewValidationError("Comment content is required")
	}
	snap := authorSnapshot(author)
	c := models.ForumComment{
		ID:        newID(),
		Author:    models.ForumAuthor{Name: snap.Name, Avatar: snap.Avatar},
		Content:   content,
		Timestamp: s.clock.now().UnixMilli(),
	}
	return s.mutate(ctx, id, func(p *models.ForumPost) error {
		p.CommentsList = append(slices.Clone(p.CommentsList), c)
		p.Comments++
		return nil
	})
}

func (s *ForumService) mutate(ctx context.Context, id string, fn func(*models.ForumPost) error) (models.ForumPost, error) {
	posts := s.forum.Load(ctx)
	idx := slices.IndexFunc(posts, func(p models.ForumPost) bool { return p.ID == id })
	if idx < 0 {
		return models.ForumPost{}, models.NewNotFoundError("Post", id)
	}
	if err := fn(&posts[idx]); err != nil {
		return models.ForumPost{}, err
	}
	return posts[idx], s.forum.Save(ctx, posts)
}
