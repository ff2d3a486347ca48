package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "en-US", cfg.Chat.Language)
	assert.Equal(t, 2*time.Second, cfg.Chat.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Chat.PollTimeout)
	assert.Equal(t, int64(10*1024*1024), cfg.Chat.MaxUploadBytes)
	assert.Equal(t, "memory", cfg.Store.Snapshot)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POLL_TIMEOUT_SECONDS", "5")
	t.Setenv("SNAPSHOT_STORE", "redis")
	t.Setenv("TITLE_MAX_LENGTH", "not-a-number")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.Chat.PollTimeout)
	assert.Equal(t, "redis", cfg.Store.Snapshot)
	assert.Equal(t, 50, cfg.Chat.TitleMaxLength)
	assert.True(t, cfg.App.OtelEnabled)
}
