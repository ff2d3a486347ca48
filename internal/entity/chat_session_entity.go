package entity

import (
	"strings"
	"time"

	"docchat-client/internal/constant"
)

type ContextMode string

const (
	ContextGeneral        ContextMode = "general"
	ContextDocumentSearch ContextMode = "document-search"
)

// ParseContextMode accepts both the internal names and the backend wire values.
func ParseContextMode(value string) (ContextMode, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(ContextGeneral):
		return ContextGeneral, true
	case string(ContextDocumentSearch), constant.ChatContextDocuments, "document":
		return ContextDocumentSearch, true
	}
	return "", false
}

// Wire returns the value the backend expects in the "context" field.
func (m ContextMode) Wire() string {
	if m == ContextDocumentSearch {
		return constant.ChatContextDocuments
	}
	return constant.ChatContextGeneral
}

// Conversation is the per-tab chat transcript plus its context mode.
type Conversation struct {
	Messages  []ChatMessage `json:"messages"`
	Context   ContextMode   `json:"context"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Clone returns a copy whose message slice does not alias the receiver.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = append([]ChatMessage(nil), c.Messages...)
	return out
}

type SavedSession struct {
	Id           string        `json:"id"`
	Title        string        `json:"title"`
	Context      ContextMode   `json:"context"`
	Messages     []ChatMessage `json:"messages,omitempty"`
	MessageCount int           `json:"message_count"`
	CreatedAt    time.Time     `json:"created_at"`
}
