package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg := Load()
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, int64(100), cfg.MaxUploadMB)
	assert.Equal(t, "disk", cfg.StorageBackend)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("BOT_ADMIN_CHAT_ID", "-100123")
	t.Setenv("BOT_POLL_TIMEOUT", "not-a-number")

	cfg := Load()
	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, int64(-100123), cfg.BotAdminChatID)
	assert.Equal(t, 30, cfg.BotPollTimeout)
}
