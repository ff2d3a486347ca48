package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID `json:"id"`
	Origin        string    `json:"origin"` // "user" | "assistant"
	Body          string    `json:"body"`
	Kind          string    `json:"kind"` // "welcome" | "user" | "bot" | "error" | "file"
	CreatedAt     time.Time `json:"created_at"`
	Sources       []string  `json:"sources,omitempty"`
	Attachments   []string  `json:"attachments,omitempty"`
	LowConfidence bool      `json:"low_confidence,omitempty"`
}
