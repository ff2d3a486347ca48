package contract

import (
	"context"

	"docchat-client/internal/entity"
)

// ConversationRepository stores one conversation snapshot per browser tab.
// Get returns (nil, nil) when no snapshot exists for the tab.
type ConversationRepository interface {
	Get(ctx context.Context, tabID string) (*entity.Conversation, error)
	Set(ctx context.Context, tabID string, conversation *entity.Conversation) error
	Clear(ctx context.Context, tabID string) error
}
