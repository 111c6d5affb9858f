package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REMVAULT_DATABASE_URL", "postgres://localhost:5432/remvault")
	t.Setenv("REMVAULT_AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("REMVAULT_LLM_GEMINI_API_KEY", "test-api-key")
	t.Setenv("REMVAULT_KB_ROOT", t.TempDir())
}

func TestLoadWithEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REMVAULT_SERVER_PORT", "9090")
	t.Setenv("REMVAULT_SERVER_LOG_LEVEL", "debug")
	t.Setenv("REMVAULT_SRS_DESIRED_RETENTION", "0.85")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "postgres://localhost:5432/remvault", cfg.Database.URL)
	assert.Equal(t, "test-api-key", cfg.LLM.GeminiAPIKey)
	assert.InDelta(t, 0.85, cfg.SRS.DesiredRetention, 1e-9)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 60, cfg.Auth.TokenLifetimeMinutes)
	assert.Equal(t, 10, cfg.Auth.BCryptCost)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelName)
	assert.Equal(t, ".chats", cfg.KB.ChatsDir)
	assert.Equal(t, ".review", cfg.KB.ExportDir)
	assert.False(t, cfg.KB.WatchEnabled)
	assert.Equal(t, 2, cfg.Task.WorkerCount)
	assert.InDelta(t, 0.9, cfg.SRS.DesiredRetention, 1e-9)
	assert.Equal(t, 10, cfg.SRS.AgainReviewMinutes)
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REMVAULT_AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REMVAULT_AUTH_JWT_SECRET", "too-short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REMVAULT_SERVER_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}
