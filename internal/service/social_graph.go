package service

import (
	"context"
	"slices"

	"opcdiary/internal/models"
	"opcdiary/internal/repository"
)

// Relation is how one identity relates to another in the follow graph.
type Relation string

const (
	RelationNone      Relation = "none"
	RelationRequested Relation = "requested"
	RelationFollower  Relation = "follower"
	RelationFriend    Relation = "friend"
)

// RelationStatus derives the relation of me towards other from the two
// directed edges between them.
func RelationStatus(g models.Connections, me, other string) Relation {
	out := g.Follows(me, other)
	in := g.Follows(other, me)
	switch {
	case out && in:
		return RelationFriend
	case out:
		return RelationRequested
	case in:
		return RelationFollower
	default:
		return RelationNone
	}
}

// ToggleFollow flips the me -> other edge in g. Following a simulated
// counterparty also adds the reverse edge, since it can never accept on its
// own. Unfollowing only ever touches me's edge.
func ToggleFollow(g models.Connections, me, other string, isSimulated bool) Relation {
	if g.Follows(me, other) {
		g.Unfollow(me, other)
	} else {
		g.Follow(me, other)
		if isSimulated {
			g.Follow(other, me)
		}
	}
	return RelationStatus(g, me, other)
}

// SocialGraph answers relationship questions over the stored connections.
type SocialGraph struct {
	conns     repository.ConnectionRepository
	users     repository.UserRepository
	directory *Directory
}

// NewSocialGraph returns a new SocialGraph.
func NewSocialGraph(conns repository.ConnectionRepository, users repository.UserRepository, directory *Directory) *SocialGraph {
	return &SocialGraph{conns: conns, users: users, directory: directory}
}

// Directory returns the simulated counterparties.
func (s *SocialGraph) Directory() *Directory {
	return s.directory
}

// IsSimulated reports whether name is a simulated counterparty.
func (s *SocialGraph) IsSimulated(name string) bool {
	return s.directory.IsSimulated(name)
}

// Status returns the relation of me towards other.
func (s *SocialGraph) Status(ctx context.Context, me, other string) Relation {
	return RelationStatus(s.conns.Load(ctx), me, other)
}

// ToggleFollow flips me's follow of other and persists the graph. On a quota
// error the returned relation reflects the change that could not be saved.
func (s *SocialGraph) ToggleFollow(ctx context.Context, me, other string) (Relation, error) {
	if me == other {
		return RelationNone, models.NewValidationError("Cannot follow yourself")
	}
	// A registered account is always real, even one stored under a
	// directory name before those were reserved.
	_, registered := s.users.Find(ctx, other)
	simulated := !registered && s.IsSimulated(other)
	if !registered && !simulated {
		return RelationNone, models.NewNotFoundError("User", other)
	}

	g := s.conns.Load(ctx)
	rel := ToggleFollow(g, me, other, simulated)
	return rel, s.conns.Save(ctx, g)
}

// Friends lists the identities me mutually follows.
func (s *SocialGraph) Friends(ctx context.Context, me string) []string {
	return s.collect(ctx, me, RelationFriend)
}

// Followers lists identities following me, friends included.
func (s *SocialGraph) Followers(ctx context.Context, me string) []string {
	g := s.conns.Load(ctx)
	out := []string{}
	for _, name := range s.candidates(ctx) {
		if name != me && g.Follows(name, me) {
			out = append(out, name)
		}
	}
	return out
}

// PendingRequests lists identities that follow me without me following back.
func (s *SocialGraph) PendingRequests(ctx context.Context, me string) []string {
	return s.collect(ctx, me, RelationFollower)
}

// SentRequests lists identities me follows that have not followed back.
func (s *SocialGraph) SentRequests(ctx context.Context, me string) []string {
	return s.collect(ctx, me, RelationRequested)
}

func (s *SocialGraph) collect(ctx context.Context, me string, want Relation) []string {
	g := s.conns.Load(ctx)
	out := []string{}
	for _, name := range s.candidates(ctx) {
		if name != me && RelationStatus(g, me, name) == want {
			out = append(out, name)
		}
	}
	return out
}

// candidates returns every live identity: registered users in
// registration order, then simulated counterparties. Edges pointing at
// deleted users stay in storage but are skipped here.
func (s *SocialGraph) candidates(ctx context.Context) []string {
	var names []string
	for _, u := range s.users.List(ctx) {
		names = append(names, u.CompanyName)
	}
	for _, d := range s.directory.All() {
		if !slices.Contains(names, d.Name) {
			names = append(names, d.Name)
		}
	}
	return names
}

// Tracked lists the users the supervisor follows, skipping deleted ones.
func (s *SocialGraph) Tracked(ctx context.Context) []string {
	out := []string{}
	for _, name := range s.conns.LoadTracking(ctx) {
		if _, ok := s.users.Find(ctx, name); ok {
			out = append(out, name)
		}
	}
	return out
}

// ToggleTracking adds or removes name from the supervisor's tracked users.
func (s *SocialGraph) ToggleTracking(ctx context.Context, name string) ([]string, error) {
	if _, ok := s.users.Find(ctx, name); !ok {
		return nil, models.NewNotFoundError("User", name)
	}
	tracked := s.conns.LoadTracking(ctx)
	if idx := slices.Index(tracked, name); idx >= 0 {
		tracked = slices.Delete(tracked, idx, idx+1)
	} else {
		tracked = append(tracked, name)
	}
	return tracked, s.conns.SaveTracking(ctx, tracked)
}
