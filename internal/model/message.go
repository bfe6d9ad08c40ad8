package model

import "time"

// Message type codes as they appear in the archive's type column.
// The numeric values belong to the upstream archive schema and are
// preserved as-is so histograms stay comparable across exports.
const (
	MessageTypeText   = 1
	MessageTypeImage  = 3
	MessageTypeVoice  = 34
	MessageTypeVideo  = 43
	MessageTypeEmoji  = 47
	MessageTypeShare  = 49
	MessageTypeSystem = 10000

	// MessageTypeQuotedText marks a quoted text subtype. The value is an
	// opaque legacy discriminant from the archive schema; do not decompose
	// or reinterpret it.
	MessageTypeQuotedText = 822083633
)

// Message is a single archived chat message. Records are read-only: the
// archive is maintained by an external collector and this service never
// writes to it.
type Message struct {
	Seq     int64     `json:"seq"`
	Talker  string    `json:"talker"`
	Sender  string    `json:"sender,omitempty"`
	Type    int64     `json:"type"`
	Time    time.Time `json:"time"`
	Content string    `json:"content,omitempty"`
}

// IsText reports whether the message is a plain text message.
func (m *Message) IsText() bool {
	return m.Type == MessageTypeText
}

// MessageTypeName maps a type code to a display label. Unknown codes map
// to "other" so presentation layers never render raw numbers alone.
func MessageTypeName(code int) string {
	switch code {
	case MessageTypeText, MessageTypeQuotedText:
		return "text"
	case MessageTypeImage:
		return "image"
	case MessageTypeVoice:
		return "voice"
	case MessageTypeVideo:
		return "video"
	case MessageTypeEmoji:
		return "emoji"
	case MessageTypeShare:
		return "share"
	case MessageTypeSystem:
		return "system"
	default:
		return "other"
	}
}
