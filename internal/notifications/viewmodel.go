// Package notifications computes the unread and pending-request badges of a
// session and delivers them to subscribers.
package notifications

import (
	"maps"
	"slices"
)

// Identity is who a scan is performed for.
type Identity struct {
	Name       string `json:"name"`
	Supervisor bool   `json:"supervisor"`
}

// ViewModel is the badge state of one identity at one instant.
type ViewModel struct {
	FriendRequestCount  int             `json:"friendRequestCount"`
	UnreadPeers         []string        `json:"unreadPeers"`
	UnreadSupervisor    bool            `json:"unreadSupervisor"`
	UnreadByTrackedUser map[string]bool `json:"unreadByTrackedUser"`
}

func emptyViewModel() ViewModel {
	return ViewModel{UnreadPeers: []string{}, UnreadByTrackedUser: map[string]bool{}}
}

// HasUnreadPeer reports whether name is in UnreadPeers.
func (v ViewModel) HasUnreadPeer(name string) bool {
	return slices.Contains(v.UnreadPeers, name)
}

// Equal compares two view-models field by field. Scans keep UnreadPeers
// sorted.
func (v ViewModel) Equal(o ViewModel) bool {
	return v.FriendRequestCount == o.FriendRequestCount &&
		v.UnreadSupervisor == o.UnreadSupervisor &&
		slices.Equal(v.UnreadPeers, o.UnreadPeers) &&
		maps.Equal(v.UnreadByTrackedUser, o.UnreadByTrackedUser)
}
