package config

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string
	Port             string

	SolanaRPCEndpoint string
	RPCTimeoutSecs    int
	JupiterAPIURL     string
	JupiterPriceURL   string
	JupiterAPIKey     string
	JupiterRatePerSec float64

	RelayEndpoints       []string
	RelayTipLamports     uint64
	RelayTimeoutSecs     int
	UseRelay             bool
	BroadcastMaxAttempts int
	SlippageBps          int
	QuoteTimeoutSecs     int
	TradeConcurrency     int

	TrendTickSecs   int
	TrendWindowMins int
	TrendLockTTL    int

	PricePollSecs      int
	PriceIngestEnabled bool

	SSHAddr           string
	SSHHostKeyPath    string
	SSHAuthorizedKeys string

	MCPAuthToken          string
	MCPRateLimitPerMin    int
	MCPRequestTimeoutSecs int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. Problems are reported to
// logger and replaced by defaults; Load never fails.
func Load(logger *zap.Logger) *Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := &Config{
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		JupiterAPIKey:     strings.TrimSpace(os.Getenv("JUPITER_API_KEY")),
		SSHAddr:           strings.TrimSpace(os.Getenv("SSH_ADDR")),
		SSHHostKeyPath:    stringOr("SSH_HOST_KEY_PATH", ".ssh/trendbot_ed25519"),
		SSHAuthorizedKeys: strings.TrimSpace(os.Getenv("SSH_AUTHORIZED_KEYS")),
		MCPAuthToken:      strings.TrimSpace(os.Getenv("MCP_AUTH_TOKEN")),
		LogLevel:          stringOr("LOG_LEVEL", "info"),
		LogFormat:         stringOr("LOG_FORMAT", "json"),
	}

	if cfg.TelegramBotToken == "" {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, cross-process trend lease disabled")
	}

	cfg.Port = stringOr("PORT", "8080")
	cfg.SolanaRPCEndpoint = stringOr("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com")
	cfg.JupiterAPIURL = stringOr("JUPITER_API_URL", "https://api.jup.ag/swap/v1")
	cfg.JupiterPriceURL = stringOr("JUPITER_PRICE_URL", "https://lite-api.jup.ag/price/v3")

	cfg.JupiterRatePerSec = 0
	if v := strings.TrimSpace(os.Getenv("JUPITER_RATE_PER_SEC")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			cfg.JupiterRatePerSec = n
		} else {
			logger.Warn("invalid JUPITER_RATE_PER_SEC, rate limit disabled", zap.String("value", v))
		}
	}

	cfg.RelayEndpoints = parseList(os.Getenv("RELAY_ENDPOINTS"))

	cfg.RelayTipLamports = 1_000_000
	if v := strings.TrimSpace(os.Getenv("RELAY_TIP_LAMPORTS")); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			cfg.RelayTipLamports = n
		} else {
			logger.Warn("invalid RELAY_TIP_LAMPORTS, using default", zap.String("value", v))
		}
	}

	cfg.UseRelay = true
	if v := strings.TrimSpace(os.Getenv("USE_RELAY")); v != "" {
		if strings.EqualFold(v, "true") {
			cfg.UseRelay = true
		} else if strings.EqualFold(v, "false") {
			cfg.UseRelay = false
		}
	}

	cfg.PriceIngestEnabled = true
	if v := strings.TrimSpace(os.Getenv("PRICE_INGEST_ENABLED")); strings.EqualFold(v, "false") {
		cfg.PriceIngestEnabled = false
	}

	cfg.RelayTimeoutSecs = positiveInt(logger, "RELAY_TIMEOUT_SECS", 10)
	cfg.RPCTimeoutSecs = positiveInt(logger, "RPC_TIMEOUT_SECS", 10)
	cfg.BroadcastMaxAttempts = positiveInt(logger, "BROADCAST_MAX_ATTEMPTS", 3)
	cfg.SlippageBps = positiveInt(logger, "SLIPPAGE_BPS", 500)
	cfg.QuoteTimeoutSecs = positiveInt(logger, "QUOTE_TIMEOUT_SECS", 15)
	cfg.TradeConcurrency = positiveInt(logger, "TRADE_CONCURRENCY", 4)
	cfg.TrendTickSecs = positiveInt(logger, "TREND_TICK_SECS", 60)
	cfg.TrendWindowMins = positiveInt(logger, "TREND_WINDOW_MINS", 30)
	cfg.TrendLockTTL = positiveInt(logger, "TREND_LOCK_TTL_SECS", 55)
	cfg.PricePollSecs = positiveInt(logger, "PRICE_POLL_SECS", 15)
	cfg.MCPRateLimitPerMin = positiveInt(logger, "MCP_RATE_LIMIT_PER_MIN", 60)
	cfg.MCPRequestTimeoutSecs = positiveInt(logger, "MCP_REQUEST_TIMEOUT_SECS", 5)

	if cfg.SlippageBps > 10_000 {
		logger.Warn("SLIPPAGE_BPS above 10000, using default", zap.Int("value", cfg.SlippageBps))
		cfg.SlippageBps = 500
	}

	return cfg
}

func stringOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func positiveInt(logger *zap.Logger, key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("invalid integer setting, using default", zap.String("key", key), zap.String("value", v), zap.Int("default", fallback))
		return fallback
	}
	return n
}

func parseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
