package domain

// DocumentTypeConversation marks conversation metadata documents.
const DocumentTypeConversation = "conversation_info"

// ConversationIDPrefix prefixes the deterministic metadata document id.
const ConversationIDPrefix = "conversation_"

// ConversationMeta stores aggregate conversation state. Exactly one exists per
// (ConversationID, UserID) pair.
type ConversationMeta struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	UserID         string         `json:"userId"`
	UserName       string         `json:"userName,omitempty"`
	DocumentType   string         `json:"documentType"`
	CreatedAt      string         `json:"createdAt"`
	LastActivity   string         `json:"lastActivity"`
	MessageCount   int            `json:"messageCount"`
	IsActive       bool           `json:"isActive"`
	TTL            int64          `json:"ttl"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// ConversationMetaID returns the metadata document id for a conversation.
func ConversationMetaID(conversationID string) string {
	return ConversationIDPrefix + conversationID
}

// SweepResult summarizes one retention pass over every conversation.
type SweepResult struct {
	Conversations int `json:"conversations"`
	Deleted       int `json:"deleted"`
}
