package repository

import (
	"context"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
)

// MessageRepository stores supervisor mailboxes (one per user) and peer
// threads (one per unordered pair of users).
type MessageRepository interface {
	SupervisorThread(ctx context.Context, user string) models.Thread
	SaveSupervisorThread(ctx context.Context, user string, thread models.Thread) error
	PeerThread(ctx context.Context, a, b string) models.Thread
	SavePeerThread(ctx context.Context, a, b string, thread models.Thread) error
}

type messageRepository struct {
	threads *family[models.Thread]
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(store kvstore.Store, c codec.Codec) MessageRepository {
	return &messageRepository{
		threads: newFamily("messages", store, c,
			func() models.Thread { return models.Thread{} },
			func(t *models.Thread) {
				if *t == nil {
					*t = models.Thread{}
				}
			}),
	}
}

func (r *messageRepository) SupervisorThread(ctx context.Context, user string) models.Thread {
	return r.threads.load(ctx, InstructionsKey(user))
}

func (r *messageRepository) SaveSupervisorThread(ctx context.Context, user string, thread models.Thread) error {
	return r.threads.save(ctx, InstructionsKey(user), thread)
}

func (r *messageRepository) PeerThread(ctx context.Context, a, b string) models.Thread {
	return r.threads.load(ctx, PeerThreadKey(a, b))
}

func (r *messageRepository) SavePeerThread(ctx context.Context, a, b string, thread models.Thread) error {
	return r.threads.save(ctx, PeerThreadKey(a, b), thread)
}
