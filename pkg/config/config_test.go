package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Context.CacheEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Context.CacheTTL)
	assert.Equal(t, 40, cfg.Context.AncestorsLimit)
	assert.Equal(t, 2, cfg.ReplyTree.MaxLevel)
	assert.Equal(t, DistributionRedis, cfg.Distribution.Backend)
	assert.Equal(t, "statuses:events", cfg.Events.StatusChannel)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DISTRIBUTION_BACKEND", " NATS ")
	t.Setenv("CONTEXT_CACHE_TTL", "not-a-duration")
	t.Setenv("CONTEXT_DESCENDANTS_LIMIT", "7")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DistributionNATS, cfg.Distribution.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Context.CacheTTL)
	assert.Equal(t, 7, cfg.Context.DescendantsLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
