package repository

// Logical store keys. Backends may add their own namespace prefix.
const (
	UsersKey          = "users"
	LastActiveUserKey = "last-active-user"
	ConnectionsKey    = "connections"
	TrackingKey       = "supervisor-tracking"
	ForumPostsKey     = "forum-posts"
	JoinedGroupsKey   = "joined-groups"
	AddedFriendsKey   = "added-friends"

	projectsPrefix     = "projects:"
	instructionsPrefix = "instructions:"
	chatPrefix         = "chat:"
)

// ProjectsKey names the key holding every project owned by owner.
func ProjectsKey(owner string) string {
	return projectsPrefix + owner
}

// InstructionsKey names the supervisor mailbox of user.
func InstructionsKey(user string) string {
	return instructionsPrefix + user
}

// PeerThreadKey names the single thread shared by a and b. Argument order
// does not matter. Onboarding rejects '_' in names, so distinct pairs never
// share a key.
func PeerThreadKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return chatPrefix + a + "_" + b
}

// KeyPrefixes lists the prefixes of the per-scope key families.
func KeyPrefixes() []string {
	return []string{projectsPrefix, instructionsPrefix, chatPrefix}
}
