package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// AppURL is the public base URL of the mini-app, used in admin export
	// links sent over the bot. Required at startup.
	AppURL string

	// ReportAPIKey protects the admin export surface. Required at startup.
	ReportAPIKey string

	// BotToken and AdminTGID configure the Telegram relay. Both are required
	// unless BotDisabled is set (useful for local development without a bot).
	BotToken    string
	AdminTGID   int64
	BotDisabled bool

	// Exam parameters for one attempt.
	ExamID              string
	ExamTitle           string
	DurationSec         int
	QuestionsPerAttempt int
	PassRate            float64
	AutoFinishThreshold int
	SelectionStrategy   string

	QuestionsFile string
	DataDir       string

	// RedisURL switches the session store to Redis when set.
	RedisURL string
	// DatabaseURL switches the result log to PostgreSQL when set.
	DatabaseURL string
	MaxDBConns  int32

	SessionTTL    time.Duration
	SweepInterval time.Duration

	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "3000"),
		GinMode:    getEnv("GIN_MODE", "debug"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "pretty"),

		AppURL:       getEnv("APP_URL", "http://localhost:3000"),
		ReportAPIKey: getEnv("REPORT_API_KEY", ""),

		BotToken:    getEnv("BOT_TOKEN", ""),
		AdminTGID:   getEnvInt64("ADMIN_TG_ID", 0),
		BotDisabled: getEnv("BOT_DISABLED", "0") == "1",

		ExamID:              getEnv("EXAM_ID", "default"),
		ExamTitle:           getEnv("EXAM_TITLE", "Exam"),
		DurationSec:         getEnvInt("EXAM_DURATION_SEC", 600),
		QuestionsPerAttempt: getEnvInt("EXAM_QUESTIONS_PER_ATTEMPT", 15),
		PassRate:            getEnvFloat("EXAM_PASS_RATE", 0.70),
		AutoFinishThreshold: getEnvInt("EXAM_AUTO_FINISH_THRESHOLD", 3),
		SelectionStrategy:   getEnv("EXAM_SELECTION_STRATEGY", "random"),

		QuestionsFile: getEnv("QUESTIONS_FILE", "./data/questions.json"),
		DataDir:       getEnv("DATA_DIR", "./data"),

		RedisURL:    getEnv("REDIS_URL", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MaxDBConns:  int32(getEnvInt("MAX_DB_CONNS", 8)),

		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_SEC", 5)) * time.Second,

		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

// Validate reports the names of required settings that are missing.
// The caller is expected to refuse startup on a non-empty result.
func (c *Config) Validate() []string {
	var missing []string
	if c.ReportAPIKey == "" {
		missing = append(missing, "REPORT_API_KEY")
	}
	if c.AppURL == "" {
		missing = append(missing, "APP_URL")
	}
	if !c.BotDisabled {
		if c.BotToken == "" {
			missing = append(missing, "BOT_TOKEN")
		}
		if c.AdminTGID == 0 {
			missing = append(missing, "ADMIN_TG_ID")
		}
	}
	return missing
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

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
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

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
