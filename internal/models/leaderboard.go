package models

import (
	"time"

	"github.com/google/uuid"
)

const MaxLeaderboardNameLen = 32

type Leaderboard struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	InviteCode   string    `json:"-"`
	CreationTime time.Time `json:"creation_time"`
}

type LeaderboardMember struct {
	UserID   uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Admin    bool      `json:"admin"`
}

// LeaderboardListing is one row of a user's own leaderboard list.
type LeaderboardListing struct {
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// RankedMember is one row of a computed leaderboard standing.
type RankedMember struct {
	UserID    uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Admin     bool      `json:"admin"`
	TimeCoded int64     `json:"time_coded"`
	Rank      int       `json:"rank"`
}

// LeaderboardStandings is the per-read ranked view; never stored.
type LeaderboardStandings struct {
	Name         string         `json:"name"`
	Invite       string         `json:"invite,omitempty"`
	CreationTime time.Time      `json:"creation_time"`
	Members      []RankedMember `json:"members"`
	MyRank       int            `json:"me"`
}
