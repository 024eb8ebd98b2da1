package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "")
	t.Setenv("DEDUP_STRATEGY", "")
	t.Setenv("SWEEP_SCHEDULE", "")

	cfg := Load()

	assert.Equal(t, DedupAuthorText, cfg.DedupStrategy)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "0 2 * * 1", cfg.SweepSchedule)
	assert.Equal(t, "https://via.placeholder.com/50", cfg.PlaceholderPhotoURL)
	assert.Equal(t, "sk", cfg.ReviewLanguage)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("DEDUP_STRATEGY", DedupLegacyUpsert)
	t.Setenv("SWEEP_ENABLED", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.sk, https://b.sk,,")

	cfg := Load()

	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, DedupLegacyUpsert, cfg.DedupStrategy)
	assert.False(t, cfg.SweepEnabled)
	assert.Equal(t, []string{"https://a.sk", "https://b.sk"}, cfg.AllowedOrigins)
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "soon")

	assert.Equal(t, 10*time.Second, Load().UpstreamTimeout)
}
