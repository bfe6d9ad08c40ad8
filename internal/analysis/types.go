package analysis

// Member is a resolved group member. DisplayName is never empty: when the
// roster cannot resolve a name it falls back to UserName. Members are built
// fresh per query and carry no identity beyond it.
type Member struct {
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarURL,omitempty"`
}

// ChatRoomSummary describes one group conversation in a listing.
type ChatRoomSummary struct {
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName"`
	MemberCount int    `json:"memberCount"`
	AvatarURL   string `json:"avatarURL,omitempty"`
}

// MemberRanking pairs a member with their message count inside a window.
type MemberRanking struct {
	Member       *Member `json:"member"`
	MessageCount int     `json:"messageCount"`
}

// DailyCount is the number of messages on one calendar day. Date is
// formatted YYYY-MM-DD; days without messages are omitted, so Count is
// always positive.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
