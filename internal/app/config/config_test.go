package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/shopwhiz")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HTTP_INTERNAL_TOKEN", "secret")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "https://api.openai.com", cfg.OpenAI.BaseURL)
	assert.Equal(t, 3, cfg.Assistant.RetryBudget)
	assert.Equal(t, 5, cfg.Assistant.TopN)
	assert.Equal(t, "https://cdn.shopify.com/", cfg.Assistant.CDNHost)
	assert.Equal(t, 24*time.Hour, cfg.Assistant.BestSellerTTL)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("ASSISTANT_RETRY_BUDGET", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, 5, cfg.Assistant.RetryBudget)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HTTP_INTERNAL_TOKEN", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/shopwhiz")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("HTTP_INTERNAL_TOKEN", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai.api_key")
}
