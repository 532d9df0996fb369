package repository

import (
	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
)

// Repositories bundles every family over one store.
type Repositories struct {
	Users       UserRepository
	Projects    ProjectRepository
	Connections ConnectionRepository
	Messages    MessageRepository
	Forum       ForumRepository
	Lists       ListRepository
}

// New builds all repositories over store using codec c.
func New(store kvstore.Store, c codec.Codec) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(store, c),
		Projects:    NewProjectRepository(store, c),
		Connections: NewConnectionRepository(store, c),
		Messages:    NewMessageRepository(store, c),
		Forum:       NewForumRepository(store, c),
		Lists:       NewListRepository(store, c),
	}
}
