package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"opcdiary/internal/analyzer"
	"opcdiary/internal/models"
	"opcdiary/internal/repository"
)

// DefaultPublishDelay is the pause before an entry counts as published.
const DefaultPublishDelay = 800 * time.Millisecond

// ProjectBook is the in-memory mirror of one owner's projects. Every
// mutation rereads the stored list, applies the change and writes the whole
// list back. A failed save keeps the change in the mirror and marks it
// unsaved; an unsaved mirror is not reread until a save succeeds.
type ProjectBook struct {
	mu       sync.Mutex
	owner    string
	projects []models.Project
	unsaved  bool
}

// NewProjectBook wraps projects owned by owner.
func NewProjectBook(owner string, projects []models.Project) *ProjectBook {
	if projects == nil {
		projects = []models.Project{}
	}
	return &ProjectBook{owner: owner, projects: projects}
}

// Owner returns the company name the book belongs to.
func (b *ProjectBook) Owner() string {
	return b.owner
}

// Projects returns a copy of the mirrored projects.
func (b *ProjectBook) Projects() []models.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.projects)
}

// Project returns the project with id.
func (b *ProjectBook) Project(id string) (models.Project, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.projects {
		if p.ID == id {
			return p, true
		}
	}
	return models.Project{}, false
}

// EntryInput is the content of a new or edited diary entry.
type EntryInput struct {
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

// CommentAuthor describes who writes a diary comment.
type CommentAuthor struct {
	Name    string
	Avatar  string
	IsOwner bool
}

// DiaryOptions tunes a DiaryService.
type DiaryOptions struct {
	PublishDelay time.Duration
	Clock        Clock
}

// DiaryService implements the project and diary entry operations.
type DiaryService struct {
	projects     repository.ProjectRepository
	analyzer     analyzer.Analyzer
	publishDelay time.Duration
	clock        Clock
}

// NewDiaryService returns a new DiaryService. A nil analyzer uses the default
// keyword scanner. A negative PublishDelay disables the delay.
func NewDiaryService(projects repository.ProjectRepository, a analyzer.Analyzer, opts DiaryOptions) *DiaryService {
	if a == nil {
		a = analyzer.New()
	}
	delay := opts.PublishDelay
	if delay == 0 {
		delay = DefaultPublishDelay
	}
	return &DiaryService{
		projects:     projects,
		analyzer:     a,
		publishDelay: max(delay, 0),
		clock:        opts.Clock,
	}
}

// Load reads owner's projects into a fresh mirror.
func (s *DiaryService) Load(ctx context.Context, owner string) *ProjectBook {
	return NewProjectBook(owner, s.projects.Load(ctx, owner))
}

// CreateProject appends a new project with default stats.
func (s *DiaryService) CreateProject(ctx context.Context, book *ProjectBook, name, description string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, models.NewValidationError("Project name is required")
	}
	if strings.TrimSpace(description) == "" {
		description = models.DefaultProjectDescription
	}
	p := models.Project{
		ID:          newID(),
		Name:        name,
		Description: description,
		Stats:       models.DefaultStats(),
		Entries:     []models.DiaryEntry{},
	}

	book.mu.Lock()
	defer book.mu.Unlock()
	s.refresh(ctx, book)
	book.projects = append(book.projects, p)
	return p, s.save(ctx, book)
}

// PublishEntry waits out the publish delay, then prepends an entry and folds
// the amounts and stage found in its text into the project stats.
func (s *DiaryService) PublishEntry(ctx context.Context, book *ProjectBook, projectID string, in EntryInput) (models.Project, error) {
	images := nonEmpty(in.Images)
	if strings.TrimSpace(in.Content) == "" && len(images) == 0 {
		return models.Project{}, models.NewValidationError("An entry needs text or an image")
	}
	if _, ok := book.Project(projectID); !ok {
		return models.Project{}, models.NewNotFoundError("Project", projectID)
	}

	if s.publishDelay > 0 {
		timer := time.NewTimer(s.publishDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return models.Project{}, ctx.Err()
		case <-timer.C:
		}
	}

	now := s.clock.now()
	found := s.analyzer.Financials(in.Content)
	entry := models.DiaryEntry{
		ID:        newID(),
		Content:   in.Content,
		Images:    images,
		Timestamp: now.UnixMilli(),
		Date:      now.Format("1/2/2006"),
		Comments:  []models.Comment{},
	}

	return s.mutate(ctx, book, projectID, func(p *models.Project) error {
		p.Entries = append([]models.DiaryEntry{entry}, p.Entries...)
		p.Stats.Cost = analyzer.FormatCurrency(analyzer.ParseCurrency(p.Stats.Cost) + found.Cost)
		p.Stats.Profit = analyzer.FormatCurrency(analyzer.ParseCurrency(p.Stats.Profit) + found.Profit)
		if stage, ok := s.analyzer.Stage(in.Content); ok {
			p.Stats.Stage = analyzer.AdvanceStage(p.Stats.Stage, stage)
		}
		p.Stats.TimeSpent = analyzer.TimeSpent(p.Entries, now)
		return nil
	})
}

// EditEntry replaces an entry's text in place.
func (s *DiaryService) EditEntry(ctx context.Context, book *ProjectBook, projectID, entryID, content string) (models.Project, error) {
	if strings.TrimSpace(content) == "" {
		return models.Project{}, models.NewValidationError("Entry content is required")
	}
	return s.mutate(ctx, book, projectID, func(p *models.Project) error {
		idx := p.FindEntry(entryID)
		if idx < 0 {
			return models.NewNotFoundError("Entry", entryID)
		}
		p.Entries[idx].Content = content
		return nil
	})
}

// DeleteEntry removes an entry. Stats already accrued from it stay.
func (s *DiaryService) DeleteEntry(ctx context.Context, book *ProjectBook, projectID, entryID string) (models.Project, error) {
	return s.mutate(ctx, book, projectID, func(p *models.Project) error {
		idx := p.FindEntry(entryID)
		if idx < 0 {
			return models.NewNotFoundError("Entry", entryID)
		}
		p.Entries = slices.Delete(p.Entries, idx, idx+1)
		p.Stats.TimeSpent = analyzer.TimeSpent(p.Entries, s.clock.now())
		return nil
	})
}

// AddComment appends a comment to an entry.
func (s *DiaryService) AddComment(ctx context.Context, book *ProjectBook, projectID, entryID string, author CommentAuthor, content string) (models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return models.Comment{}, models.NewValidationError("Comment content is required")
	}
	avatar := author.Avatar
	if avatar == "" {
		avatar = AvatarFallback("Guest")
	}
	c := models.Comment{
		ID:      newID(),
		Author:  author.Name,
		Content: content,
		IsOwner: author.IsOwner,
		Avatar:  avatar,
	}
	_, err := s.mutate(ctx, book, projectID, func(p *models.Project) error {
		idx := p.FindEntry(entryID)
		if idx < 0 {
			return models.NewNotFoundError("Entry", entryID)
		}
		p.Entries[idx].Comments = append(p.Entries[idx].Comments, c)
		return nil
	})
	if err != nil && !models.IsQuota(err) {
		return models.Comment{}, err
	}
	return c, err
}

// Stats fields editable by hand.
const (
	StatStage     = "stage"
	StatTimeSpent = "timeSpent"
	StatCost      = "cost"
	StatProfit    = "profit"
)

// UpdateStats overwrites one stats field with a display string.
func (s *DiaryService) UpdateStats(ctx context.Context, book *ProjectBook, projectID, field, value string) (models.Project, error) {
	return s.mutate(ctx, book, projectID, func(p *models.Project) error {
		switch field {
		case StatStage:
			p.Stats.Stage = value
		case StatTimeSpent:
			p.Stats.TimeSpent = value
		case StatCost:
			p.Stats.Cost = value
		case StatProfit:
			p.Stats.Profit = value
		default:
			return models.NewValidationError("Unknown stats field " + field)
		}
		return nil
	})
}

// mutate refreshes the mirror, applies fn to a copy of the project, swaps it
// in and saves the book. fn errors leave the refreshed mirror otherwise
// untouched.
func (s *DiaryService) mutate(ctx context.Context, book *ProjectBook, projectID string, fn func(*models.Project) error) (models.Project, error) {
	book.mu.Lock()
	defer book.mu.Unlock()
	s.refresh(ctx, book)

	idx := slices.IndexFunc(book.projects, func(p models.Project) bool { return p.ID == projectID })
	if idx < 0 {
		return models.Project{}, models.NewNotFoundError("Project", projectID)
	}
	p := cloneProject(book.projects[idx])
	if err := fn(&p); err != nil {
		return models.Project{}, err
	}
	book.projects[idx] = p
	return p, s.save(ctx, book)
}

// refresh replaces the mirror with the stored list so writes made by other
// sessions since the book was loaded are not overwritten. Callers hold
// book.mu.
func (s *DiaryService) refresh(ctx context.Context, book *ProjectBook) {
	if book.unsaved {
		return
	}
	book.projects = s.projects.Load(ctx, book.owner)
	if book.projects == nil {
		book.projects = []models.Project{}
	}
}

func (s *DiaryService) save(ctx context.Context, book *ProjectBook) error {
	err := s.projects.Save(ctx, book.owner, book.projects)
	book.unsaved = err != nil
	return err
}

func cloneProject(p models.Project) models.Project {
	p.Entries = slices.Clone(p.Entries)
	for i := range p.Entries {
		p.Entries[i].Images = slices.Clone(p.Entries[i].Images)
		p.Entries[i].Comments = slices.Clone(p.Entries[i].Comments)
	}
	return p
}

func nonEmpty(in []string) []string {
	out := []string{}
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
