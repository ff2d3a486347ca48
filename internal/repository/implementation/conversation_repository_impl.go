package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docchat-client/internal/entity"
	"docchat-client/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const conversationKeyPrefix = "docchat:conversation:"

type conversationRepositoryImpl struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewConversationRepository stores snapshots as JSON strings with a TTL so a
// tab reconnecting to another instance finds its conversation.
func NewConversationRepository(rdb *redis.Client, ttl time.Duration) contract.ConversationRepository {
	return &conversationRepositoryImpl{rdb: rdb, ttl: ttl}
}

func (r *conversationRepositoryImpl) key(tabID string) string {
	return conversationKeyPrefix + tabID
}

func (r *conversationRepositoryImpl) Get(ctx context.Context, tabID string) (*entity.Conversation, error) {
	data, err := r.rdb.Get(ctx, r.key(tabID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var conv entity.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

func (r *conversationRepositoryImpl) Set(ctx context.Context, tabID string, conversation *entity.Conversation) error {
	data, err := json.Marshal(conversation)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(tabID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (r *conversationRepositoryImpl) Clear(ctx context.Context, tabID string) error {
	if err := r.rdb.Del(ctx, r.key(tabID)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}
