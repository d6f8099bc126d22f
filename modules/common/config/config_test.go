package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	t.Setenv("KIE_API_KEY", "kie-key")
	t.Setenv("PUBLIC_BASE_URL", "https://api.reelcraft.test/")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GEMINI_API_KEYS", "k1,k2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
	assert.Equal(t, "veo3_fast", cfg.KieModel)
	assert.Equal(t, "videos", cfg.VideoBucket)
	assert.Equal(t, []string{"k1", "k2"}, cfg.GeminiAPIKeys)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KIE_API_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KIE_API_KEY")
}

func TestCallbackURL(t *testing.T) {
	cfg := &Config{PublicBaseURL: "https://api.reelcraft.test/"}
	assert.Equal(t, "https://api.reelcraft.test/api/webhooks/kie", cfg.CallbackURL())

	cfg.KieCallbackToken = "s3cr3t&x"
	assert.Equal(t, "https://api.reelcraft.test/api/webhooks/kie?token=s3cr3t%26x", cfg.CallbackURL())
}
