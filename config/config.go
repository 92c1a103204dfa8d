package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"rentledger-backend/logger"
)

type Config struct {
	Port        string
	CORSOrigins []string

	// Database
	DBDriver      string // postgres, sqlite
	DBURL         string
	DBDebug       bool
	RunMigrations bool

	JWTSecret string

	// Billing
	RentDueDay  int
	RentCron    string
	OverdueCron string
	Currency    string

	// Documents and notifications
	DocumentDir    string
	SiteURL        string
	AsyncDispatch  bool
	TwilioSID      string
	TwilioToken    string
	TwilioWhatsApp string
	TwilioPhone    string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string

	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		Port:           getEnv("PORT", "8080"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBURL:          getEnv("DB_URL", ""),
		DBDebug:        getBool("DB_DEBUG", false),
		RunMigrations:  getBool("MIGRATIONS", false),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		RentDueDay:     getInt("RENT_DUE_DAY", 10),
		RentCron:       getEnv("RENT_CRON", "0 1 1 * *"),
		OverdueCron:    getEnv("OVERDUE_CRON", "0 9 * * *"),
		Currency:       getEnv("CURRENCY", "BDT"),
		DocumentDir:    getEnv("DOCUMENT_DIR", "documents"),
		SiteURL:        strings.TrimRight(getEnv("SITE_URL", "http://localhost:8080"), "/"),
		AsyncDispatch:  getBool("ASYNC_DISPATCH", true),
		TwilioSID:      getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsApp: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
		TwilioPhone:    getEnv("TWILIO_PHONE_NUMBER", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getInt("SMTP_PORT", 587),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:       getEnv("SMTP_FROM", "billing@localhost"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:  getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:      getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.RentDueDay < 1 || c.RentDueDay > 28 {
		return fmt.Errorf("RENT_DUE_DAY must be between 1 and 28")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
