package memory

import (
	"context"
	"time"

	"docchat-client/internal/entity"

	"github.com/patrickmn/go-cache"
)

// ConversationRepository keeps per-tab snapshots in process memory. Snapshots
// expire after the TTL, which plays the role of the tab session ending.
type ConversationRepository struct {
	cache *cache.Cache
}

func NewConversationRepository(ttl time.Duration) *ConversationRepository {
	// Purge expired items every 10 minutes
	c := cache.New(ttl, 10*time.Minute)
	return &ConversationRepository{
		cache: c,
	}
}

func (r *ConversationRepository) Get(_ context.Context, tabID string) (*entity.Conversation, error) {
	if x, found := r.cache.Get(tabID); found {
		conv := x.(entity.Conversation).Clone()
		return &conv, nil
	}
	return nil, nil
}

func (r *ConversationRepository) Set(_ context.Context, tabID string, conversation *entity.Conversation) error {
	r.cache.Set(tabID, conversation.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *ConversationRepository) Clear(_ context.Context, tabID string) error {
	r.cache.Delete(tabID)
	return nil
}
