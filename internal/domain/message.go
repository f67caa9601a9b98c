package domain

// Message types consumed by the conversational runtime. The field is an open
// string; anything else is stored as given.
const (
	MessageTypeUser   = "user"
	MessageTypeBot    = "bot"
	MessageTypeSystem = "system"
)

// MaxMessageLength is the hard cap, in characters, applied to message text
// before it is stored.
const MaxMessageLength = 4000

// TimeLayout is the fixed-width ISO-8601 layout used for every stored
// timestamp. Fixed width keeps lexicographic and chronological order aligned
// within one zone offset.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Message is a single persisted conversation message. It is never updated
// after it has been written.
type Message struct {
	ID             string `json:"id"`
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	Text           string `json:"message"`
	MessageType    string `json:"messageType"`
	Timestamp      string `json:"timestamp"`
	DateCreated    string `json:"dateCreated"`
	TTL            int64  `json:"ttl"`
}
