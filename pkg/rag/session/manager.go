package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"docchat-client/internal/entity"
	"docchat-client/internal/pkg/logger"
	"docchat-client/internal/repository/contract"
	"docchat-client/pkg/rag/message"
)

const module = "SessionStore"

var ErrEmptySnapshot = errors.New("snapshot has no messages")

// Store owns one tab's conversation. Every mutation is persisted through the
// repository; persistence failures are logged and never surface to callers.
type Store struct {
	mu      sync.RWMutex
	tabID   string
	conv    entity.Conversation
	repo    contract.ConversationRepository
	factory *message.Factory
	logger  logger.ILogger
	now     func() time.Time
}

func NewStore(tabID string, repo contract.ConversationRepository, factory *message.Factory, log logger.ILogger) *Store {
	s := &Store{
		tabID:   tabID,
		repo:    repo,
		factory: factory,
		logger:  log,
		now:     time.Now,
	}
	s.conv = s.defaultConversation(entity.ContextGeneral)
	return s
}

func (s *Store) defaultConversation(mode entity.ContextMode) entity.Conversation {
	return entity.Conversation{
		Messages:  []entity.ChatMessage{s.factory.Welcome()},
		Context:   mode,
		UpdatedAt: s.now(),
	}
}

// Load restores the tab's snapshot, falling back to the default welcome-only
// conversation when there is none or it cannot be read.
func (s *Store) Load(ctx context.Context) entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.repo.Get(ctx, s.tabID)
	if err != nil {
		s.logger.Warn(module, "Failed to load conversation snapshot", map[string]interface{}{
			"tab_id": s.tabID,
			"error":  err.Error(),
		})
	}
	if err == nil && stored != nil && len(stored.Messages) > 0 {
		s.conv = stored.Clone()
		if s.conv.Context == "" {
			s.conv.Context = entity.ContextGeneral
		}
		return s.conv.Clone()
	}

	s.conv = s.defaultConversation(entity.ContextGeneral)
	s.persistLocked(ctx)
	return s.conv.Clone()
}

// Append adds messages in order. Existing messages are never touched.
func (s *Store) Append(ctx context.Context, msgs ...entity.ChatMessage) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conv.Messages = append(s.conv.Messages, msgs...)
	s.conv.UpdatedAt = s.now()
	s.persistLocked(ctx)
}

// Reset replaces the transcript with a single welcome message and keeps the
// current context mode.
func (s *Store) Reset(ctx context.Context) entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conv = s.defaultConversation(s.conv.Context)
	s.persistLocked(ctx)
	return s.conv.Clone()
}

// SwitchContext resets the transcript to a welcome plus the new mode's
// advisory. Switching to the current mode does nothing and returns false.
func (s *Store) SwitchContext(ctx context.Context, mode entity.ContextMode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conv.Context == mode {
		return false
	}

	s.conv = entity.Conversation{
		Messages:  []entity.ChatMessage{s.factory.Welcome(), s.factory.Advisory(mode)},
		Context:   mode,
		UpdatedAt: s.now(),
	}
	s.persistLocked(ctx)
	return true
}

// Replace installs a whole conversation, e.g. one loaded from a saved
// session. An empty transcript is replaced by the default.
func (s *Store) Replace(ctx context.Context, conv entity.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.Context == "" {
		conv.Context = entity.ContextGeneral
	}
	if len(conv.Messages) == 0 {
		s.conv = s.defaultConversation(conv.Context)
	} else {
		s.conv = conv.Clone()
		s.conv.UpdatedAt = s.now()
	}
	s.persistLocked(ctx)
}

func (s *Store) Snapshot() entity.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv.Clone()
}

func (s *Store) Context() entity.ContextMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv.Context
}

// Serialize encodes the conversation as JSON.
func (s *Store) Serialize() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.conv)
}

// Restore replaces the in-memory conversation from Serialize output. It does
// not write to the repository.
func (s *Store) Restore(data []byte) error {
	var conv entity.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return fmt.Errorf("failed to decode conversation: %w", err)
	}
	if len(conv.Messages) == 0 {
		return ErrEmptySnapshot
	}
	if conv.Context == "" {
		conv.Context = entity.ContextGeneral
	}

	s.mu.Lock()
	s.conv = conv
	s.mu.Unlock()
	return nil
}

// Clear drops the persisted snapshot, e.g. when the tab workspace expires.
func (s *Store) Clear(ctx context.Context) {
	if err := s.repo.Clear(ctx, s.tabID); err != nil {
		s.logger.Warn(module, "Failed to clear conversation snapshot", map[string]interface{}{
			"tab_id": s.tabID,
			"error":  err.Error(),
		})
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	conv := s.conv.Clone()
	if err := s.repo.Set(ctx, s.tabID, &conv); err != nil {
		s.logger.Warn(module, "Failed to persist conversation snapshot", map[string]interface{}{
			"tab_id":   s.tabID,
			"messages": len(conv.Messages),
			"error":    err.Error(),
		})
	}
}
