package notifications

import (
	"context"
	"slices"
	"time"

	"opcdiary/internal/models"
	"opcdiary/internal/observability"
	"opcdiary/internal/repository"
	"opcdiary/internal/service"
)

// Scanner recomputes a ViewModel from the current store contents. It keeps no
// state between scans.
type Scanner struct {
	messages repository.MessageRepository
	graph    *service.SocialGraph
	tracer   *observability.TraceLayer
}

// NewScanner returns a new Scanner.
func NewScanner(messages repository.MessageRepository, graph *service.SocialGraph) *Scanner {
	return &Scanner{
		messages: messages,
		graph:    graph,
		tracer:   observability.GetTraceLayer(),
	}
}

// Scan inspects only the last message of each relevant thread. A thread is
// unread when that message came from the counterparty and is not yet read.
func (s *Scanner) Scan(ctx context.Context, id Identity) ViewModel {
	ctx, span := s.tracer.TraceScan(ctx, id.Name, id.Supervisor)
	defer span.End()
	start := time.Now()
	defer func() { observability.PollDuration.Observe(time.Since(start).Seconds()) }()

	vm := emptyViewModel()
	if id.Supervisor {
		for _, user := range s.graph.Tracked(ctx) {
			vm.UnreadByTrackedUser[user] = s.messages.SupervisorThread(ctx, user).LastUnreadFrom(models.SenderUser)
		}
		return vm
	}

	vm.FriendRequestCount = len(s.graph.PendingRequests(ctx, id.Name))
	vm.UnreadSupervisor = s.messages.SupervisorThread(ctx, id.Name).LastUnreadFrom(models.SenderSupervisor)
	for _, friend := range s.graph.Friends(ctx, id.Name) {
		if s.messages.PeerThread(ctx, id.Name, friend).LastUnreadFrom(friend) {
			vm.UnreadPeers = append(vm.UnreadPeers, friend)
		}
	}
	slices.Sort(vm.UnreadPeers)
	return vm
}
