package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:test-token")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001234")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.MinTradeUSD.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, 40, cfg.MinAlertScore)
	assert.Equal(t, 60, cfg.FreshWalletMaxAgeDays)
	assert.Equal(t, 0.40, cfg.LongshotProbThreshold)
	assert.Equal(t, time.Hour, cfg.ProfileCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.PositionsCacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.DedupWindow)
	assert.Equal(t, time.Second, cfg.AlertMinInterval)
	assert.Equal(t, "wss://ws-live-data.polymarket.com", cfg.FeedURL)
	assert.Empty(t, cfg.ExcludedTags)
	assert.False(t, cfg.EnableTUI)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MIN_TRADE_USD", "500.50")
	t.Setenv("EXCLUDED_TAGS", " Sports, CRYPTO ,,recurring ")
	t.Setenv("PROFILE_CACHE_TTL", "30m")
	t.Setenv("MIN_ALERT_SCORE", "55")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.MinTradeUSD.Equal(decimal.RequireFromString("500.50")))
	assert.Equal(t, []string{"sports", "crypto", "recurring"}, cfg.ExcludedTags)
	assert.Equal(t, 30*time.Minute, cfg.ProfileCacheTTL)
	assert.Equal(t, 55, cfg.MinAlertScore)
}

func TestLoadMissingCredentialsFails(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative min trade", func(c *Config) { c.MinTradeUSD = decimal.NewFromInt(-1) }},
		{"score too high", func(c *Config) { c.MinAlertScore = 101 }},
		{"longshot threshold out of range", func(c *Config) { c.LongshotProbThreshold = 1.5 }},
		{"lp ratio zero", func(c *Config) { c.LPBalanceRatio = 0 }},
		{"multiplier too small", func(c *Config) { c.SizeAnomalyMultiplier = 1 }},
		{"zero attempts", func(c *Config) { c.AlertMaxAttempts = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			cfg, err := Load()
			require.NoError(t, err)

			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBadEnvValueFallsBackToDefault(t *testing.T) {
	setRequired(t)
	t.Setenv("MIN_ALERT_SCORE", "not-a-number")
	t.Setenv("STATS_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.MinAlertScore)
	assert.Equal(t, time.Minute, cfg.StatsInterval)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****oken", MaskSecret("123456:test-token"))
	assert.Equal(t, "****", MaskSecret("ab"))
}
