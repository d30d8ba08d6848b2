package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         string
	Store        string
	DBConn       string
	LogLevel     string
	JWTSecret    string
	JWTTTL       time.Duration
	FrontendURLs []string
	StatsCron    string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from an optional .env file and environment variables
func NewConfig() (*Config, error) {
	// Values already present in the environment win over .env
	_ = godotenv.Load()

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Store:        getEnv("STORE", "postgres"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5432 user=foodlink password=foodlink dbname=foodlink sslmode=disable"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTTTL:       ttl,
		FrontendURLs: splitList(getEnv("FRONTEND_URLS", "http://localhost:3000")),
		StatsCron:    getEnv("STATS_CRON", "@hourly"),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "noreply@foodlink.local"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive")
	}
	switch cfg.Store {
	case "postgres":
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unknown STORE %q", cfg.Store)
	}

	return cfg, nil
}

// MailEnabled reports whether SMTP notifications are configured
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
