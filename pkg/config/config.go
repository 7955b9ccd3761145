package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the signal core.
type Config struct {
	Port string

	// Market data
	Symbols           []string
	PrimaryInterval   string
	SecondaryInterval string // empty disables higher-timeframe confirmation
	UseMockFeed       bool
	BinanceTestnet    bool
	WarmupBars        int

	// Fusion
	ConflictEpsilon float64 // minimum BUY/SELL weight gap before a side wins
	MinATRPercent   float64 // ATR as % of price, lower band
	MaxATRPercent   float64 // ATR as % of price, upper band

	// Orchestrator
	OrchestratorEnabled    bool
	HealthScoringWindow    int
	LossStreakDisable      int
	DisableDurationSeconds int
	EnforceRegimes         bool
	MinHealthScore         float64

	// Strategy configuration
	StrategyConfigPath string

	// Database
	DBPath string

	// Auth
	JWTSecret string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:                   getEnv("PORT", "8080"),
		Symbols:                splitAndTrim(getEnv("SYMBOLS", "BTCUSDT,ETHUSDT")),
		PrimaryInterval:        getEnv("PRIMARY_INTERVAL", "5m"),
		SecondaryInterval:      getEnv("SECONDARY_INTERVAL", "1h"),
		UseMockFeed:            getEnv("USE_MOCK_FEED", "true") == "true",
		BinanceTestnet:         getEnv("BINANCE_TESTNET", "false") == "true",
		WarmupBars:             getEnvInt("WARMUP_BARS", 120),
		ConflictEpsilon:        getEnvFloat("CONFLICT_EPSILON", 0.3),
		MinATRPercent:          getEnvFloat("MIN_ATR_PERCENT", 0.5),
		MaxATRPercent:          getEnvFloat("MAX_ATR_PERCENT", 10.0),
		OrchestratorEnabled:    getEnv("ORCHESTRATOR_ENABLED", "true") == "true",
		HealthScoringWindow:    getEnvInt("HEALTH_SCORING_WINDOW", 10),
		LossStreakDisable:      getEnvInt("LOSS_STREAK_DISABLE", 3),
		DisableDurationSeconds: getEnvInt("DISABLE_DURATION_SECONDS", 3600),
		EnforceRegimes:         getEnv("ENFORCE_REGIMES", "false") == "true",
		MinHealthScore:         getEnvFloat("MIN_HEALTH_SCORE", 0.3),
		StrategyConfigPath:     getEnv("STRATEGY_CONFIG_PATH", "strategies.yaml"),
		DBPath:                 getEnv("DB_PATH", "./data/signal-core.db"),
		JWTSecret:              getEnv("JWT_SECRET", "dev-secret"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
