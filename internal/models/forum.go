package models

import "slices"

// Category is the fixed set a forum post can be filed under.
type Category string

const (
	CategoryGeneral  Category = "general"
	CategoryLaunch   Category = "launch"
	CategoryHelp     Category = "help"
	CategoryFeedback Category = "feedback"
	CategoryShowcase Category = "showcase"
)

// Categories lists every valid category.
var Categories = []Category{CategoryGeneral, CategoryLaunch, CategoryHelp, CategoryFeedback, CategoryShowcase}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// DefaultForumTitle is the author title used when a profile has none.
const DefaultForumTitle = "Solo Founder"

// ForumAuthor is a snapshot of the author taken at post time.
type ForumAuthor struct {
	Name   string `json:"name" yaml:"name"`
	Avatar string `json:"avatar" yaml:"avatar"`
	Title  string `json:"title,omitempty" yaml:"title"`
}

// ForumComment is one reply under a forum post.
type ForumComment struct {
	ID        string      `json:"id" yaml:"id"`
	Author    ForumAuthor `json:"author" yaml:"author"`
	Content   string      `json:"content" yaml:"content"`
	Timestamp int64       `json:"timestamp" yaml:"timestamp"`
}

// ForumPost is one post in the single application-wide forum collection.
// LikedBy is the source of truth for likes; Likes may carry a baseline from
// seeded posts that predates LikedBy.
type ForumPost struct {
	ID           string         `json:"id" yaml:"id"`
	Author       ForumAuthor    `json:"author" yaml:"author"`
	Content      string         `json:"content" yaml:"content"`
	Image        string         `json:"image,omitempty" yaml:"image"`
	Link         string         `json:"link,omitempty" yaml:"link"`
	Category     Category       `json:"category" yaml:"category"`
	Timestamp    int64          `json:"timestamp" yaml:"timestamp"`
	Likes        int            `json:"likes" yaml:"likes"`
	LikedBy      []string       `json:"likedBy" yaml:"likedBy"`
	Comments     int            `json:"comments" yaml:"comments"`
	CommentsList []ForumComment `json:"commentsList" yaml:"commentsList"`
	Tags         []string       `json:"tags" yaml:"tags"`
}

// Normalize fills defaults and repairs the derived counters.
func (p *ForumPost) Normalize() {
	if p.Category == "" || !p.Category.Valid() {
		p.Category = CategoryGeneral
	}
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	if p.CommentsList == nil {
		p.CommentsList = []ForumComment{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Likes < len(p.LikedBy) {
		p.Likes = len(p.LikedBy)
	}
	if p.Comments < len(p.CommentsList) {
		p.Comments = len(p.CommentsList)
	}
}

// LikedByName reports whether name has liked the post.
func (p *ForumPost) LikedByName(name string) bool {
	return slices.Contains(p.LikedBy, name)
}
