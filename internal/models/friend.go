package models

// FriendEntry is one row of a user's friend list: the friend's identity plus
// their rolling coding-time sums.
type FriendEntry struct {
	Username   string          `json:"username"`
	CodingTime CodingTimeSteps `json:"coding_time"`
}
