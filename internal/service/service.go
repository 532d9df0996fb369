// Package service provides the diary's business logic on top of the
// repositories: accounts, the social graph, diaries, chat and the forum.
package service

import (
	"time"

	"github.com/google/uuid"
)

// SupervisorName is the company name shown for the supervisor role. It is
// never stored as a profile, so no user may register under it.
const SupervisorName = "Supervisor"

// Actor is the identity a request is performed as.
type Actor struct {
	Name       string
	Supervisor bool
}

// Clock abstracts time.Now for tests.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// newID returns a time-ordered identifier.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// AvatarFallback is the generated avatar used when a profile has none.
func AvatarFallback(seed string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + seed
}
