package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings for the bitematch service. It is read from the
// environment once at startup and treated as immutable afterwards.
type Config struct {
	// Server
	Port         string
	CookieSecure bool

	// Hosts besides the app's own that may open the plan WebSocket
	WSOriginPatterns []string

	// Database
	DBPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Meal source
	MealDBBaseURL  string
	MealDBTimeout  time.Duration
	MealDBRetries  int
	MealDBCacheTTL time.Duration
	RedisAddr      string

	// Plan and shopping
	PlanCap        int
	PlanViewLimit  int
	ShoppingLimit  int
	ShoppingLocale string

	// Deck
	DeckSettleDelay time.Duration
	DeckIdleTTL     time.Duration

	// Session
	SessionTTL time.Duration

	// Delivery
	SMSRelayURL      string
	SMSRelaySecret   string
	TelegramBotToken string

	// In-process SMS, used when SMSRelayURL is empty
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioMsgService string
	TwilioBaseURL    string
}

// TwilioConfigured reports whether in-process SMS delivery is possible.
func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioMsgService != ""
}

// RelayConfig holds the settings for the standalone SMS relay.
type RelayConfig struct {
	Port      string
	Secret    string
	LogLevel  string
	LogFormat string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioMsgService string
	TwilioBaseURL    string

	RateLimitPerMinute int
}

// Load reads the service configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Port = getEnvString("BITEMATCH_PORT", "8080")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", false)
	cfg.WSOriginPatterns = getEnvList("WS_ORIGIN_PATTERNS")
	cfg.DBPath = getEnvString("BITEMATCH_DB_PATH", "bitematch.db")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvString("LOG_FORMAT", "text")
	cfg.MealDBBaseURL = strings.TrimRight(getEnvString("MEALDB_BASE_URL", "https://www.themealdb.com/api/json/v1/1"), "/")
	cfg.MealDBTimeout = getEnvDuration("MEALDB_TIMEOUT", 10*time.Second)
	cfg.MealDBRetries = getEnvInt("MEALDB_RETRIES", 1)
	cfg.MealDBCacheTTL = getEnvDuration("MEALDB_CACHE_TTL", time.Hour)
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.PlanCap = getEnvInt("PLAN_CAP", 20)
	cfg.PlanViewLimit = getEnvInt("PLAN_VIEW_LIMIT", 20)
	cfg.ShoppingLimit = getEnvInt("SHOPPING_LIMIT", 5)
	cfg.ShoppingLocale = getEnvString("SHOPPING_LOCALE", "sv")
	cfg.DeckSettleDelay = getEnvDuration("DECK_SETTLE_DELAY", 150*time.Millisecond)
	cfg.DeckIdleTTL = getEnvDuration("DECK_IDLE_TTL", 30*time.Minute)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 90*24*time.Hour)
	cfg.SMSRelayURL = os.Getenv("SMS_RELAY_URL")
	cfg.SMSRelaySecret = os.Getenv("SMS_RELAY_SECRET")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.TwilioMsgService = os.Getenv("TWILIO_MSG_SERVICE")
	cfg.TwilioBaseURL = os.Getenv("TWILIO_BASE_URL")

	if cfg.SMSRelayURL != "" && cfg.SMSRelaySecret == "" {
		return nil, fmt.Errorf("SMS_RELAY_SECRET is required when SMS_RELAY_URL is set")
	}
	if cfg.PlanCap < 1 {
		return nil, fmt.Errorf("PLAN_CAP must be at least 1, got %d", cfg.PlanCap)
	}

	return cfg, nil
}

// LoadRelay reads the SMS relay configuration from the environment.
// Missing required variables are reported together.
func LoadRelay() (*RelayConfig, error) {
	cfg := &RelayConfig{}

	var missing []string

	cfg.Secret = os.Getenv("RELAY_SECRET")
	if cfg.Secret == "" {
		missing = append(missing, "RELAY_SECRET")
	}

	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	if cfg.TwilioAccountSID == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}

	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	if cfg.TwilioAuthToken == "" {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}

	cfg.TwilioMsgService = os.Getenv("TWILIO_MSG_SERVICE")
	if cfg.TwilioMsgService == "" {
		missing = append(missing, "TWILIO_MSG_SERVICE")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.Port = getEnvString("RELAY_PORT", "8081")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvString("LOG_FORMAT", "text")
	cfg.TwilioBaseURL = getEnvString("TWILIO_BASE_URL", "")
	cfg.RateLimitPerMinute = getEnvInt("RELAY_RATE_LIMIT", 10)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvList splits a comma-separated variable, dropping blank items.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
