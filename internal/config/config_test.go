package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "nagarsathi", cfg.ServiceName)
	assert.Equal(t, models.LanguageEnglish, cfg.DefaultLanguage)
	assert.Equal(t, 1500*time.Millisecond, cfg.ThinkingDelay)
	assert.Equal(t, 8*time.Second, cfg.StatusUpdateDelay)
	assert.Equal(t, 3*time.Second, cfg.RewardDelay)
	assert.Equal(t, 5*1024*1024, cfg.MaxImageBytes)
	assert.Equal(t, "nagarsathi.chat.request", cfg.NatsRequestSubject)
	assert.Equal(t, VisionNone, cfg.VisionProvider)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("DEFAULT_LANGUAGE", "hi")
	t.Setenv("THINKING_DELAY", "10ms")
	t.Setenv("MAX_CONCURRENT_ANALYSES", "2")
	t.Setenv("MEMORY_CACHE_USERS", "25")
	t.Setenv("NATS_ENABLED", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, models.LanguageHindi, cfg.DefaultLanguage)
	assert.Equal(t, 10*time.Millisecond, cfg.ThinkingDelay)
	assert.Equal(t, 2, cfg.MaxConcurrentAnalyses)
	assert.Equal(t, 25, cfg.MemoryCacheUsers)
	assert.False(t, cfg.NatsEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("REWARD_DELAY", "soon")
	t.Setenv("MAX_IMAGE_BYTES", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.RewardDelay)
	assert.Equal(t, 5*1024*1024, cfg.MaxImageBytes)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown language", map[string]string{"DEFAULT_LANGUAGE": "tamil"}},
		{"unknown backend", map[string]string{"STORE_BACKEND": "cassandra"}},
		{"postgres without dsn", map[string]string{"STORE_BACKEND": "postgres"}},
		{"mongo without uri", map[string]string{"STORE_BACKEND": "mongo"}},
		{"openai without key", map[string]string{"STORE_BACKEND": "memory", "VISION_PROVIDER": "openai"}},
		{"http without url", map[string]string{"STORE_BACKEND": "memory", "VISION_PROVIDER": "http"}},
		{"unknown provider", map[string]string{"STORE_BACKEND": "memory", "VISION_PROVIDER": "crystal-ball"}},
		{"zero analyses", map[string]string{"STORE_BACKEND": "memory", "MAX_CONCURRENT_ANALYSES": "0"}},
		{"zero cached users", map[string]string{"STORE_BACKEND": "memory", "MEMORY_CACHE_USERS": "0"}},
		{"negative delay", map[string]string{"STORE_BACKEND": "memory", "THINKING_DELAY": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
