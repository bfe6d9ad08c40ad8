package model

// Conversation is a roster session entry. UserName doubles as the
// conversation identifier used by the message archive's talker column.
type Conversation struct {
	UserName string `json:"userName"`
	IsGroup  bool   `json:"isGroup"`
}

// Contact is a roster identity row.
type Contact struct {
	UserName  string `json:"userName"`
	NickName  string `json:"nickName"`
	Remark    string `json:"remark,omitempty"`
	AvatarURL string `json:"avatarURL,omitempty"`
}

// DisplayName resolves the name shown for the contact. Remark wins over
// NickName; an unnamed contact falls back to its UserName.
func (c *Contact) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.Remark != "" {
		return c.Remark
	}
	if c.NickName != "" {
		return c.NickName
	}
	return c.UserName
}

// RoomMember is a raw group membership row. UserName may be empty when the
// roster could not resolve the member's identity; such rows carry no usable
// information and are skipped by consumers.
type RoomMember struct {
	UserName  string `json:"userName"`
	AvatarURL string `json:"avatarURL,omitempty"`
}
