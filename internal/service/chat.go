package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"opcdiary/internal/models"
	"opcdiary/internal/repository"
)

// ChatService handles supervisor mailboxes and peer threads.
type ChatService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	graph    *SocialGraph
	clock    Clock
}

// NewChatService returns a new ChatService.
func NewChatService(messages repository.MessageRepository, users repository.UserRepository, graph *SocialGraph, clock Clock) *ChatService {
	return &ChatService{messages: messages, users: users, graph: graph, clock: clock}
}

func validateMessage(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Message content is required")
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return models.NewValidationError("Message too long (max 10000 characters)")
	}
	return nil
}

func (s *ChatService) message(sender, content string) models.MessageItem {
	return models.MessageItem{
		ID:        newID(),
		Sender:    sender,
		Content:   content,
		Timestamp: s.clock.now().UnixMilli(),
	}
}

// SendToSupervisor appends a user's message to their own mailbox.
func (s *ChatService) SendToSupervisor(ctx context.Context, user, content string) (models.Thread, error) {
	return s.appendSupervisor(ctx, user, models.SenderUser, content)
}

// ReplyAsSupervisor appends a supervisor message to user's mailbox.
func (s *ChatService) ReplyAsSupervisor(ctx context.Context, user, content string) (models.Thread, error) {
	if _, ok := s.users.Find(ctx, user); !ok {
		return nil, models.NewNotFoundError("User", user)
	}
	return s.appendSupervisor(ctx, user, models.SenderSupervisor, content)
}

func (s *ChatService) appendSupervisor(ctx context.Context, user, sender, content string) (models.Thread, error) {
	if err := validateMessage(content); err != nil {
		return nil, err
	}
	thread := append(s.messages.SupervisorThread(ctx, user), s.message(sender, content))
	return thread, s.messages.SaveSupervisorThread(ctx, user, thread)
}

// OpenSupervisorThread returns user's mailbox and marks the counterparty's
// trailing messages read. asSupervisor selects which side is reading.
func (s *ChatService) OpenSupervisorThread(ctx context.Context, user string, asSupervisor bool) (models.Thread, error) {
	self := models.SenderUser
	if asSupervisor {
		self = models.SenderSupervisor
	}
	thread := s.messages.SupervisorThread(ctx, user)
	if !thread.MarkRead(self) {
		return thread, nil
	}
	return thread, s.messages.SaveSupervisorThread(ctx, user, thread)
}

// SendPeer appends a message from one friend to another.
func (s *ChatService) SendPeer(ctx context.Context, from, to, content string) (models.Thread, error) {
	if err := validateMessage(content); err != nil {
		return nil, err
	}
	if s.graph.Status(ctx, from, to) != RelationFriend {
		return nil, models.NewForbiddenError("You can only message friends")
	}
	thread := append(s.messages.PeerThread(ctx, from, to), s.message(from, content))
	return thread, s.messages.SavePeerThread(ctx, from, to, thread)
}

// OpenPeerThread returns the thread between self and other and marks other's
// trailing messages read. The thread stays readable after the friendship ends.
func (s *ChatService) OpenPeerThread(ctx context.Context, self, other string) (models.Thread, error) {
	if self == other {
		return nil, models.NewValidationError("Cannot open a thread with yourself")
	}
	thread := s.messages.PeerThread(ctx, self, other)
	if !thread.MarkRead(self) {
		return thread, nil
	}
	return thread, s.messages.SavePeerThread(ctx, self, other, thread)
}
