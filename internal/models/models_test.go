package models

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestThread_LastUnreadFrom(t *testing.T) {
	var empty Thread
	assert.False(t, empty.LastUnreadFrom("Acme"))

	th := Thread{
		{ID: "1", Sender: "Acme", Content: "hi"},
		{ID: "2", Sender: "Zed", Content: "yo"},
	}
	assert.True(t, th.LastUnreadFrom("Zed"))
	assert.False(t, th.LastUnreadFrom("Acme"), "only the last message counts")

	th[1].Read = true
	assert.False(t, th.LastUnreadFrom("Zed"))
}

func TestThread_MarkRead(t *testing.T) {
	th := Thread{
		{ID: "1", Sender: "Zed"},
		{ID: "2", Sender: "Acme"},
		{ID: "3", Sender: "Zed"},
		{ID: "4", Sender: "Zed"},
	}

	assert.True(t, th.MarkRead("Acme"))
	assert.False(t, th[0].Read, "messages before our own reply stay untouched")
	assert.True(t, th[2].Read)
	assert.True(t, th[3].Read)

	assert.False(t, th.MarkRead("Acme"), "second pass changes nothing")
	assert.False(t, Thread{{Sender: "Acme"}}.MarkRead("Acme"))
}

func TestConnections_FollowUnfollow(t *testing.T) {
	g := Connections{}
	g.Follow("Acme", "Zed")
	g.Follow("Acme", "Zed")
	assert.Equal(t, []string{"Zed"}, g["Acme"])
	assert.True(t, g.Follows("Acme", "Zed"))
	assert.False(t, g.Follows("Zed", "Acme"), "edges are directed")

	before := g["Acme"]
	g.Unfollow("Acme", "Zed")
	assert.Empty(t, g["Acme"])
	assert.Equal(t, []string{"Zed"}, before, "unfollow does not mutate shared slices")

	g.Unfollow("Acme", "Nobody")

	var nilGraph Connections
	nilGraph.Normalize()
	assert.NotNil(t, nilGraph)
}

func TestProject_NormalizeFillsDefaults(t *testing.T) {
	p := Project{ID: "p1", Entries: []DiaryEntry{{ID: "e1"}}}
	p.Normalize()
	assert.Equal(t, DefaultStats(), p.Stats)
	assert.NotNil(t, p.Entries[0].Images)
	assert.NotNil(t, p.Entries[0].Comments)
	assert.Equal(t, 0, p.FindEntry("e1"))
	assert.Equal(t, -1, p.FindEntry("missing"))
}

func TestForumPost_NormalizeRepairsCounters(t *testing.T) {
	p := ForumPost{Category: "nonsense", Likes: 0, LikedBy: []string{"a", "b"}, CommentsList: []ForumComment{{ID: "c"}}}
	p.Normalize()
	assert.Equal(t, CategoryGeneral, p.Category)
	assert.Equal(t, 2, p.Likes)
	assert.Equal(t, 1, p.Comments)
	assert.True(t, p.LikedByName("a"))

	seeded := ForumPost{Category: CategoryLaunch, Likes: 40}
	seeded.Normalize()
	assert.Equal(t, 40, seeded.Likes, "a seeded baseline survives")
}

func TestProfile_PublicAndPatch(t *testing.T) {
	u := UserProfile{CompanyName: "Acme", Password: "pw", Description: "old"}
	desc, pw := "new", ""
	ProfilePatch{Description: &desc}.Apply(&u)
	assert.Equal(t, "new", u.Description)
	assert.Equal(t, "pw", u.Password)

	ProfilePatch{Password: &pw}.Apply(&u)
	assert.Equal(t, "", u.Password)
	assert.Equal(t, "Acme", u.Public().CompanyName)
	assert.True(t, SameName(" acme ", "ACME"))
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewNotFoundError("User", "x"), fiber.StatusNotFound},
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{NewForbiddenError("no"), fiber.StatusForbidden},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}

	quota := NewQuotaError("users", errors.New("full"))
	assert.True(t, IsQuota(quota))
	assert.True(t, HasCode(quota, CodeQuotaExceeded))
	assert.False(t, IsQuota(NewValidationError("bad")))
}
