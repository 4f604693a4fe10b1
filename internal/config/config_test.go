package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCOVER_DEFAULT_LIMIT", "")
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")

	cfg := Load()

	assert.Equal(t, 10, cfg.DiscoverDefaultLimit)
	assert.Equal(t, 50, cfg.DiscoverMaxLimit)
	assert.Equal(t, time.Minute, cfg.ActivityPingInterval)
	assert.Equal(t, 6*time.Hour, cfg.GitHubRefreshInterval)
	assert.False(t, cfg.StorageEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DISCOVER_DEFAULT_LIMIT", "25")
	t.Setenv("ACTIVITY_PING_INTERVAL", "30s")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg := Load()

	assert.Equal(t, 25, cfg.DiscoverDefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.ActivityPingInterval)
	assert.True(t, cfg.MinIOUseSSL)
	assert.True(t, cfg.StorageEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DISCOVER_MAX_LIMIT", "lots")
	t.Setenv("GITHUB_REFRESH_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 50, cfg.DiscoverMaxLimit)
	assert.Equal(t, 6*time.Hour, cfg.GitHubRefreshInterval)
}
