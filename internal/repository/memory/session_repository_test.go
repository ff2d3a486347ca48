package memory

import (
	"context"
	"testing"
	"time"

	"docchat-client/internal/constant"
	"docchat-client/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepository(time.Hour)

	got, err := repo.Get(ctx, "tab-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	conv := &entity.Conversation{
		Context:  entity.ContextGeneral,
		Messages: []entity.ChatMessage{{Body: "hello", Kind: constant.ChatMessageKindWelcome}},
	}
	require.NoError(t, repo.Set(ctx, "tab-1", conv))

	// Mutating the caller's copy must not leak into the stored snapshot
	conv.Messages[0].Body = "changed"

	got, err = repo.Get(ctx, "tab-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Messages[0].Body)

	require.NoError(t, repo.Clear(ctx, "tab-1"))
	got, err = repo.Get(ctx, "tab-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
