// Package seed fills a store with demo founders, their diaries, friendships,
// messages and forum posts. Everything goes through the services so the
// seeded data obeys the same rules as data entered through the API.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
	"opcdiary/internal/observability"
	"opcdiary/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultPassword is given to every seeded founder.
const DefaultPassword = "password123"

// Options configures a Seeder.
type Options struct {
	NumUsers          int
	ProjectsPerUser   int
	EntriesPerProject int
	PostsPerUser      int
	Password          string
	// Seed makes runs reproducible; zero picks a random seed.
	Seed int64
	// Clean removes every key before seeding.
	Clean bool
}

// Result summarizes what a run created.
type Result struct {
	Users       []string
	Projects    int
	Entries     int
	Friendships int
	Messages    int
	Posts       int
}

// Seeder creates demo data.
type Seeder struct {
	store kvstore.Store
	svcs  *service.Services
	opts  Options
	faker *gofakeit.Faker
}

// NewSeeder returns a Seeder. Services should be built with a negative
// publish delay, or every entry waits out the simulated save latency.
func NewSeeder(store kvstore.Store, svcs *service.Services, opts Options) *Seeder {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 5
	}
	if opts.ProjectsPerUser <= 0 {
		opts.ProjectsPerUser = 1
	}
	if opts.EntriesPerProject < 0 {
		opts.EntriesPerProject = 0
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	return &Seeder{store: store, svcs: svcs, opts: opts, faker: gofakeit.New(opts.Seed)}
}

// Run seeds users first, then their diaries, then the social layer.
func (s *Seeder) Run(ctx context.Context) (res Result, err error) {
	span, ctx := observability.NewSpan(ctx, "seed.Run")
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if s.opts.Clean {
		if err := Clean(ctx, s.store); err != nil {
			return res, err
		}
	}

	users, err := s.seedUsers(ctx)
	if err != nil {
		return res, err
	}
	res.Users = names(users)

	for _, u := range users {
		projects, entries, err := s.seedDiary(ctx, u)
		if err != nil {
			return res, err
		}
		res.Projects += projects
		res.Entries += entries
	}

	if res.Friendships, res.Messages, err = s.seedFriendships(ctx, res.Users); err != nil {
		return res, err
	}
	sent, err := s.seedSupervisorMessages(ctx, res.Users)
	if err != nil {
		return res, err
	}
	res.Messages += sent

	if res.Posts, err = s.seedForum(ctx, users); err != nil {
		return res, err
	}

	span.AddAttributes(attribute.Int("seed.users", len(res.Users)), attribute.Int("seed.entries", res.Entries))
	slog.Info("seed complete",
		slog.Int("users", len(res.Users)),
		slog.Int("projects", res.Projects),
		slog.Int("entries", res.Entries),
		slog.Int("friendships", res.Friendships),
		slog.Int("messages", res.Messages),
		slog.Int("posts", res.Posts),
	)
	return res, nil
}

// Clean removes every key of the store's namespace.
func Clean(ctx context.Context, store kvstore.Store) error {
	keys, err := store.Keys(ctx, "")
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	for _, key := range keys {
		if err := store.Remove(ctx, key); err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
	}
	slog.Info("store cleaned", slog.Int("keys", len(keys)))
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context) ([]models.UserProfile, error) {
	users := make([]models.UserProfile, 0, s.opts.NumUsers)
	for len(users) < s.opts.NumUsers {
		profile := s.Founder()
		if _, taken := s.svcs.Users.Get(ctx, profile.CompanyName); taken == nil {
			continue
		}
		registered, err := s.svcs.Users.Register(ctx, profile)
		if err != nil {
			if models.HasCode(err, models.CodeValidation) {
				continue
			}
			return users, fmt.Errorf("register %s: %w", profile.CompanyName, err)
		}
		users = append(users, registered)
	}
	return users, nil
}

func (s *Seeder) seedDiary(ctx context.Context, u models.UserProfile) (int, int, error) {
	book := s.svcs.Diary.Load(ctx, u.CompanyName)
	projects, entries := 0, 0
	for k := 0; k < s.opts.ProjectsPerUser; k++ {
		p, err := s.svcs.Diary.CreateProject(ctx, book, s.faker.AppName(), s.faker.Sentence(10))
		if err != nil {
			return projects, entries, fmt.Errorf("create project for %s: %w", u.CompanyName, err)
		}
		projects++
		for i := 0; i < s.opts.EntriesPerProject; i++ {
			in := service.EntryInput{Content: s.EntryText(i)}
			if _, err := s.svcs.Diary.PublishEntry(ctx, book, p.ID, in); err != nil {
				return projects, entries, fmt.Errorf("publish entry for %s: %w", u.CompanyName, err)
			}
			entries++
		}
	}
	return projects, entries, nil
}

// seedFriendships links each founder with the next one around a ring, so
// every founder has two friends once there are three or more, and then has
// each pair trade a message.
func (s *Seeder) seedFriendships(ctx context.Context, users []string) (int, int, error) {
	if len(users) < 2 {
		return 0, 0, nil
	}
	pairs := len(users)
	if pairs == 2 {
		pairs = 1
	}
	friendships, messages := 0, 0
	for i := 0; i < pairs; i++ {
		a, b := users[i], users[(i+1)%len(users)]
		if _, err := s.svcs.Graph.ToggleFollow(ctx, a, b); err != nil {
			return friendships, messages, fmt.Errorf("follow %s -> %s: %w", a, b, err)
		}
		if _, err := s.svcs.Graph.ToggleFollow(ctx, b, a); err != nil {
			return friendships, messages, fmt.Errorf("follow %s -> %s: %w", b, a, err)
		}
		friendships++

		if _, err := s.svcs.Chat.SendPeer(ctx, a, b, s.faker.HipsterSentence(8)); err != nil {
			return friendships, messages, fmt.Errorf("message %s -> %s: %w", a, b, err)
		}
		if _, err := s.svcs.Chat.SendPeer(ctx, b, a, s.faker.HipsterSentence(6)); err != nil {
			return friendships, messages, fmt.Errorf("message %s -> %s: %w", b, a, err)
		}
		messages += 2
	}
	return friendships, messages, nil
}

func (s *Seeder) seedSupervisorMessages(ctx context.Context, users []string) (int, error) {
	sent := 0
	for i, name := range users {
		if i%2 != 0 {
			continue
		}
		if _, err := s.svcs.Chat.SendToSupervisor(ctx, name, "Could use some advice on "+s.faker.BuzzWord()+"."); err != nil {
			return sent, fmt.Errorf("message supervisor from %s: %w", name, err)
		}
		if _, err := s.svcs.Chat.ReplyAsSupervisor(ctx, name, "Ship something small this week and report back."); err != nil {
			return sent, fmt.Errorf("reply to %s: %w", name, err)
		}
		sent += 2
	}
	return sent, nil
}

func (s *Seeder) seedForum(ctx context.Context, users []models.UserProfile) (int, error) {
	posts := 0
	for _, u := range users {
		for k := 0; k < s.opts.PostsPerUser; k++ {
			in := service.PostInput{
				Content:  s.faker.Paragraph(1, 3, 12, " "),
				Category: models.Categories[s.faker.Number(0, len(models.Categories)-1)],
				Tags:     []string{titleCase.String(s.faker.BuzzWord())},
			}
			if _, err := s.svcs.Forum.Create(ctx, u, in); err != nil {
				return posts, fmt.Errorf("post for %s: %w", u.CompanyName, err)
			}
			posts++
		}
	}
	return posts, nil
}

func names(users []models.UserProfile) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.CompanyName
	}
	return out
}
