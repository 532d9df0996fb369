package service

import (
	"context"
	"strings"
	"testing"

	"opcdiary/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFriends(t *testing.T, svcs *Services, a, b string) {
	t.Helper()
	ctx := context.Background()
	_, err := svcs.Graph.ToggleFollow(ctx, a, b)
	require.NoError(t, err)
	_, err = svcs.Graph.ToggleFollow(ctx, b, a)
	require.NoError(t, err)
}

func TestChatService_PeerRequiresFriendship(t *testing.T) {
	ctx := context.Background()
	svcs, repos, _ := newTestServices(t, 0)
	for _, n := range []string{"Acme", "Zed"} {
		require.NoError(t, repos.Users.Save(ctx, models.UserProfile{CompanyName: n}))
	}

	_, err := svcs.Chat.SendPeer(ctx, "Acme", "Zed", "hi")
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	makeFriends(t, svcs, "Acme", "Zed")

	thread, err := svcs.Chat.SendPeer(ctx, "Acme", "Zed", "hi")
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "Acme", thread[0].Sender)
	assert.Equal(t, testNow.UnixMilli(), thread[0].Timestamp)

	_, err = svcs.Chat.SendPeer(ctx, "Acme", "Zed", "   ")
	assert.True(t, models.HasCode(err, models.CodeValidation))
	_, err = svcs.Chat.SendPeer(ctx, "Acme", "Zed", strings.Repeat("x", models.MaxMessageLength+1))
	assert.True(t, models.HasCode(err, models.CodeValidation))
	_, err = svcs.Chat.SendPeer(ctx, "Acme", "Zed", strings.Repeat("x", models.MaxMessageLength))
	assert.NoError(t, err)

	assert.Len(t, repos.Messages.PeerThread(ctx, "Zed", "Acme"), 2)
}

func TestChatService_OpenPeerThreadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svcs, repos, store := newTestServices(t, 0)
	for _, n := range []string{"Acme", "Zed"} {
		require.NoError(t, repos.Users.Save(ctx, models.UserProfile{CompanyName: n}))
	}
	makeFriends(t, svcs, "Acme", "Zed")

	_, err := svcs.Chat.SendPeer(ctx, "Zed", "Acme", "one")
	require.NoError(t, err)
	_, err = svcs.Chat.SendPeer(ctx, "Zed", "Acme", "two")
	require.NoError(t, err)

	// The sender opening the thread changes nothing.
	thread, err := svcs.Chat.OpenPeerThread(ctx, "Zed", "Acme")
	require.NoError(t, err)
	assert.False(t, thread[0].Read)
	assert.False(t, thread[1].Read)

	first, err := svcs.Chat.OpenPeerThread(ctx, "Acme", "Zed")
	require.NoError(t, err)
	for _, m := range first {
		assert.True(t, m.Read)
	}
	raw, _, err := store.Get(ctx, "chat:Acme_Zed")
	require.NoError(t, err)

	second, err := svcs.Chat.OpenPeerThread(ctx, "Acme", "Zed")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	rawAgain, _, err := store.Get(ctx, "chat:Acme_Zed")
	require.NoError(t, err)
	assert.Equal(t, raw, rawAgain)

	_, err = svcs.Chat.OpenPeerThread(ctx, "Acme", "Acme")
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestChatService_SupervisorMailbox(t *testing.T) {
	ctx := context.Background()
	svcs, repos, _ := newTestServices(t, 0)
	require.NoError(t, repos.Users.Save(ctx, models.UserProfile{CompanyName: "Acme"}))

	_, err := svcs.Chat.ReplyAsSupervisor(ctx, "Nobody", "hello")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = svcs.Chat.SendToSupervisor(ctx, "Acme", "help me")
	require.NoError(t, err)
	thread, err := svcs.Chat.ReplyAsSupervisor(ctx, "Acme", "on it")
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, models.SenderUser, thread[0].Sender)
	assert.Equal(t, models.SenderSupervisor, thread[1].Sender)
	assert.True(t, thread.LastUnreadFrom(models.SenderSupervisor))

	// The supervisor reading does not mark their own reply read.
	thread, err = svcs.Chat.OpenSupervisorThread(ctx, "Acme", true)
	require.NoError(t, err)
	assert.False(t, thread[1].Read)

	thread, err = svcs.Chat.OpenSupervisorThread(ctx, "Acme", false)
	require.NoError(t, err)
	assert.True(t, thread[1].Read)
	assert.False(t, repos.Messages.SupervisorThread(ctx, "Acme").LastUnreadFrom(models.SenderSupervisor))
}
