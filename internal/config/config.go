package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port                     string
	DBConn                   string
	LogLevel                 string
	SecretKey                string
	Algorithm                string
	AccessTokenExpireMinutes int
	SuperuserEmail           string
	SuperuserPass            string
	AuditSchedule            string
	SMTPHost                 string
	SMTPPort                 string
	SMTPUsername             string
	SMTPPassword             string
	SenderEmail              string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBConn:         getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=accounts sslmode=disable"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		SecretKey:      getEnv("SECRET_KEY", ""),
		Algorithm:      getEnv("ALGORITHM", "HS256"),
		SuperuserEmail: getEnv("SUPERUSER_EMAIL", ""),
		SuperuserPass:  getEnv("SUPERUSER_PASS", ""),
		AuditSchedule:  getEnv("AUDIT_SCHEDULE", "0 3 * * *"),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", "no-reply@localhost"),
	}

	minutes, err := strconv.Atoi(getEnv("ACCESS_TOKEN_EXPIRE_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %w", err)
	}
	cfg.AccessTokenExpireMinutes = minutes

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	switch cfg.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("unsupported ALGORITHM: %s", cfg.Algorithm)
	}
	if cfg.SuperuserEmail != "" && cfg.SuperuserPass == "" {
		return nil, fmt.Errorf("SUPERUSER_PASS is required when SUPERUSER_EMAIL is set")
	}

	return cfg, nil
}

// SMTPConfigured reports whether outgoing mail is set up
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
