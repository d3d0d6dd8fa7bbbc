package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "HTTP_TIMEOUT", "ADAPTER_TIMEOUT", "REQUEST_TIMEOUT", "DISABLED_PROVIDERS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REPORTS_BACKEND", "REPORTS_RETENTION",
		"REPORTS_PRUNE_INTERVAL", "CONSENSUS_WINDOW", "CONSENSUS_BOX_DEGREES",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 4*time.Second, cfg.AdapterTimeout)
	assert.Equal(t, BackendMemory, cfg.ReportsBackend)
	assert.Equal(t, 24*time.Hour, cfg.ReportsRetention)
	assert.Equal(t, time.Hour, cfg.ConsensusWindow)
	assert.InDelta(t, 0.1, cfg.ConsensusBoxDegrees, 1e-9)
	assert.Empty(t, cfg.DisabledProviders)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADAPTER_TIMEOUT", "2500ms")
	t.Setenv("DISABLED_PROVIDERS", "nws, 7timer,,")
	t.Setenv("REPORTS_BACKEND", "SQLite")
	t.Setenv("CONSENSUS_BOX_DEGREES", "0.25")
	t.Setenv("RATE_LIMIT_BURST", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2500*time.Millisecond, cfg.AdapterTimeout)
	assert.Equal(t, map[string]bool{"nws": true, "7timer": true}, cfg.DisabledProviders)
	assert.Equal(t, BackendSQLite, cfg.ReportsBackend)
	assert.InDelta(t, 0.25, cfg.ConsensusBoxDegrees, 1e-9)
	assert.Equal(t, 9, cfg.RateLimitBurst)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("ADAPTER_TIMEOUT", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "ADAPTER_TIMEOUT")

	t.Setenv("ADAPTER_TIMEOUT", "")
	t.Setenv("REPORTS_BACKEND", "postgres")
	_, err = Load()
	assert.ErrorContains(t, err, "REPORTS_BACKEND")
}
