package domain

import (
	"sort"

	"github.com/samber/lo"
)

type OnlineUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// PresenceSnapshot is the wholesale list of online users sent to every client.
// It is recomputed on each registry change and never persisted.
type PresenceSnapshot struct {
	Online []OnlineUser `json:"online"`
}

// NewPresenceSnapshot builds a snapshot from the identities of the live connections.
// Users with several connections appear once; order is by username then id.
func NewPresenceSnapshot(identities []Identity) PresenceSnapshot {
	unique := lo.UniqBy(identities, func(i Identity) string { return i.UserID })
	online := lo.Map(unique, func(i Identity, _ int) OnlineUser {
		return OnlineUser{UserID: i.UserID, Username: i.Username}
	})
	sort.Slice(online, func(a, b int) bool {
		if online[a].Username != online[b].Username {
			return online[a].Username < online[b].Username
		}
		return online[a].UserID < online[b].UserID
	})
	return PresenceSnapshot{Online: online}
}

// Contains reports whether userID is listed.
func (p PresenceSnapshot) Contains(userID string) bool {
	return lo.ContainsBy(p.Online, func(u OnlineUser) bool { return u.UserID == userID })
}
