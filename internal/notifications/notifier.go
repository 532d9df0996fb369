package notifications

import (
	"context"
	"fmt"
	"runtime/debug"

	"opcdiary/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	broadcastChannel  = "notifications:broadcast"
)

// Notifier publishes rescan nudges. With Redis they fan out to every process
// subscribed through Hub.StartWiring; without it they go straight to the
// local hub.
type Notifier struct {
	rdb   *redis.Client
	local *Hub
}

// NewNotifier creates a Notifier. rdb may be nil.
func NewNotifier(rdb *redis.Client, local *Hub) *Notifier {
	return &Notifier{rdb: rdb, local: local}
}

// PublishUser nudges the sessions polling for name.
func (n *Notifier) PublishUser(ctx context.Context, name string) error {
	if n.rdb == nil {
		if n.local != nil {
			n.local.Nudge(name)
		}
		return nil
	}
	if err := n.rdb.Publish(ctx, UserChannel(name), "rescan").Err(); err != nil {
		return fmt.Errorf("publish nudge for %s: %w", name, err)
	}
	return nil
}

// PublishBroadcast nudges every session.
func (n *Notifier) PublishBroadcast(ctx context.Context) error {
	if n.rdb == nil {
		if n.local != nil {
			n.local.NudgeAll()
		}
		return nil
	}
	return n.rdb.Publish(ctx, broadcastChannel, "rescan").Err()
}

// StartPatternSubscriber subscribes to the user and broadcast channels and
// calls onMessage for each incoming message until ctx is done.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in notification subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for an identity.
func UserChannel(name string) string {
	return userChannelPrefix + name
}
