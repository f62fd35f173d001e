package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is built once at startup and passed by reference into every
// component. Nothing reads environment variables after Load returns.
type Config struct {
	// Notification channel
	TelegramToken  string
	TelegramChatID string
	SendStartupMsg bool

	AlertMinInterval  time.Duration
	AlertMaxAttempts  int
	AlertRetryBackoff time.Duration
	AlertQueueSize    int
	AlertDedupTTL     time.Duration

	// Trade feed
	FeedURL              string
	TradeQueueSize       int
	StaleAfter           time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectMaxAttempts int // 0 = retry forever

	// Upstream lookups
	DataAPIURL  string
	GammaAPIURL string
	HTTPTimeout time.Duration

	// Filters
	MinTradeUSD    decimal.Decimal
	ExcludedTags   []string
	LPBalanceRatio float64

	// Scoring
	MinAlertScore         int
	FreshWalletMaxAgeDays int
	SizeAnomalyMultiplier float64
	TimingLookbackHours   int
	LongshotProbThreshold float64
	ConcentrationMinPct   float64
	SignalsFile           string

	// Cache lifetimes
	ProfileCacheTTL   time.Duration
	PositionsCacheTTL time.Duration
	MarketsCacheTTL   time.Duration
	DedupWindow       time.Duration

	// Operations
	StatsInterval   time.Duration
	DrainTimeout    time.Duration
	MarketWarmLimit int
	HTTPAddr        string
	EnableTUI       bool
	LogLevel        string
	LogFile         string
}

// Load reads .env if present, then the environment, and validates the result.
func Load() (*Config, error) {
	// .env is a development convenience; absence is not an error
	_ = godotenv.Load()

	minTrade, err := decimal.NewFromString(getEnv("MIN_TRADE_USD", "2000"))
	if err != nil {
		return nil, fmt.Errorf("MIN_TRADE_USD: %w", err)
	}

	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),
		SendStartupMsg: getEnvBool("SEND_STARTUP_MESSAGE", true),

		AlertMinInterval:  getEnvDuration("ALERT_MIN_INTERVAL", time.Second),
		AlertMaxAttempts:  getEnvInt("ALERT_MAX_ATTEMPTS", 3),
		AlertRetryBackoff: getEnvDuration("ALERT_RETRY_BACKOFF", 2*time.Second),
		AlertQueueSize:    getEnvInt("ALERT_QUEUE_SIZE", 64),
		AlertDedupTTL:     getEnvDuration("ALERT_DEDUP_TTL", 24*time.Hour),

		FeedURL:              getEnv("FEED_URL", "wss://ws-live-data.polymarket.com"),
		TradeQueueSize:       getEnvInt("TRADE_QUEUE_SIZE", 1000),
		StaleAfter:           getEnvDuration("STALE_AFTER", 90*time.Second),
		ReconnectMaxDelay:    getEnvDuration("RECONNECT_MAX_DELAY", 60*time.Second),
		ReconnectMaxAttempts: getEnvInt("RECONNECT_MAX_ATTEMPTS", 0),

		DataAPIURL:  getEnv("DATA_API_URL", "https://data-api.polymarket.com"),
		GammaAPIURL: getEnv("GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MinTradeUSD:    minTrade,
		ExcludedTags:   splitTags(getEnv("EXCLUDED_TAGS", "")),
		LPBalanceRatio: getEnvFloat("LP_BALANCE_RATIO", 0.5),

		MinAlertScore:         getEnvInt("MIN_ALERT_SCORE", 40),
		FreshWalletMaxAgeDays: getEnvInt("FRESH_WALLET_MAX_AGE_DAYS", 60),
		SizeAnomalyMultiplier: getEnvFloat("SIZE_ANOMALY_MULTIPLIER", 3),
		TimingLookbackHours:   getEnvInt("TIMING_LOOKBACK_HOURS", 24),
		LongshotProbThreshold: getEnvFloat("LONGSHOT_PROB_THRESHOLD", 0.40),
		ConcentrationMinPct:   getEnvFloat("CONCENTRATION_MIN_PCT", 50),
		SignalsFile:           getEnv("SIGNALS_FILE", ""),

		ProfileCacheTTL:   getEnvDuration("PROFILE_CACHE_TTL", time.Hour),
		PositionsCacheTTL: getEnvDuration("POSITIONS_CACHE_TTL", 5*time.Minute),
		MarketsCacheTTL:   getEnvDuration("MARKETS_CACHE_TTL", 24*time.Hour),
		DedupWindow:       getEnvDuration("DEDUP_WINDOW", 10*time.Minute),

		StatsInterval:   getEnvDuration("STATS_INTERVAL", time.Minute),
		DrainTimeout:    getEnvDuration("DRAIN_TIMEOUT", 5*time.Second),
		MarketWarmLimit: getEnvInt("MARKET_WARM_LIMIT", 300),
		HTTPAddr:        getEnv("HTTP_ADDR", ""),
		EnableTUI:       getEnvBool("ENABLE_TUI", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with. Called before
// any network activity so a bad config fails the process immediately.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	if c.MinTradeUSD.IsNegative() {
		return fmt.Errorf("MIN_TRADE_USD must not be negative, got %s", c.MinTradeUSD)
	}
	if c.MinAlertScore < 1 || c.MinAlertScore > 100 {
		return fmt.Errorf("MIN_ALERT_SCORE must be in [1, 100], got %d", c.MinAlertScore)
	}
	if c.LongshotProbThreshold <= 0 || c.LongshotProbThreshold >= 1 {
		return fmt.Errorf("LONGSHOT_PROB_THRESHOLD must be in (0, 1), got %g", c.LongshotProbThreshold)
	}
	if c.LPBalanceRatio <= 0 || c.LPBalanceRatio > 1 {
		return fmt.Errorf("LP_BALANCE_RATIO must be in (0, 1], got %g", c.LPBalanceRatio)
	}
	if c.SizeAnomalyMultiplier <= 1 {
		return fmt.Errorf("SIZE_ANOMALY_MULTIPLIER must be > 1, got %g", c.SizeAnomalyMultiplier)
	}
	if c.FreshWalletMaxAgeDays < 1 {
		return fmt.Errorf("FRESH_WALLET_MAX_AGE_DAYS must be >= 1, got %d", c.FreshWalletMaxAgeDays)
	}
	if c.TimingLookbackHours < 1 {
		return fmt.Errorf("TIMING_LOOKBACK_HOURS must be >= 1, got %d", c.TimingLookbackHours)
	}
	if c.TradeQueueSize < 1 || c.AlertQueueSize < 1 {
		return fmt.Errorf("queue sizes must be >= 1")
	}
	if c.AlertMinInterval <= 0 {
		return fmt.Errorf("ALERT_MIN_INTERVAL must be positive, got %s", c.AlertMinInterval)
	}
	if c.AlertMaxAttempts < 1 {
		return fmt.Errorf("ALERT_MAX_ATTEMPTS must be >= 1, got %d", c.AlertMaxAttempts)
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("STALE_AFTER must be positive, got %s", c.StaleAfter)
	}
	return nil
}

// TimingLookback returns the timing signal's window as a duration.
func (c *Config) TimingLookback() time.Duration {
	return time.Duration(c.TimingLookbackHours) * time.Hour
}

// MaskSecret hides all but the tail of a credential for logging.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// splitTags normalizes a comma-separated tag list: trimmed, lower-cased,
// empties dropped.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, part := range strings.Split(s, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
