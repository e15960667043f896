package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort             = "8080"
	defaultDatabaseURL      = "file:spacebooking.db?_pragma=foreign_keys(1)"
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultJWTTTL           = "24h"
	defaultTimezone         = "UTC"
	defaultHorizonCap       = "365"
	defaultMailFrom         = "no-reply@spacebooking.local"
	defaultAutoMigrate      = "true"
	defaultCleanupRetention = "720h"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	// ScheduleLocation is where date + wall-clock request fields are composed.
	ScheduleLocation *time.Location
	HorizonCap       int

	MailAPIURL string
	MailAPIKey string
	MailFrom   string

	CORSAllowedOrigins []string
	AutoMigrate        bool
	CleanupRetention   time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config_dotenv_skipped error=%q", err.Error())
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:      strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", "dev"))),
		Port:        strings.TrimSpace(getEnv("PORT", defaultPort)),
		DatabaseURL: strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL)),
		JWTSecret:   strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret)),
		MailAPIURL:  strings.TrimSpace(os.Getenv("MAIL_API_URL")),
		MailAPIKey:  strings.TrimSpace(os.Getenv("MAIL_API_KEY")),
		MailFrom:    strings.TrimSpace(getEnv("MAIL_FROM", defaultMailFrom)),
		AutoMigrate: parseBoolEnv("AUTO_MIGRATE", defaultAutoMigrate),
	}

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.CleanupRetention, err = parseDurationEnv("CLEANUP_RETENTION", defaultCleanupRetention); err != nil {
		return nil, err
	}

	tz := strings.TrimSpace(getEnv("SCHEDULE_TIMEZONE", defaultTimezone))
	if cfg.ScheduleLocation, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TIMEZONE value %q: %w", tz, err)
	}

	capStr := strings.TrimSpace(getEnv("RECURRENCE_HORIZON_CAP", defaultHorizonCap))
	if cfg.HorizonCap, err = strconv.Atoi(capStr); err != nil {
		return nil, fmt.Errorf("invalid RECURRENCE_HORIZON_CAP value %q: %w", capStr, err)
	}

	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.CleanupRetention <= 0 {
		return fmt.Errorf("CLEANUP_RETENTION must be > 0")
	}
	if cfg.HorizonCap <= 0 {
		return fmt.Errorf("RECURRENCE_HORIZON_CAP must be > 0")
	}
	if cfg.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}

	if cfg.IsProd() {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.DatabaseURL, defaultDatabaseURL) {
			return fmt.Errorf("in prod/release DATABASE_URL must be set")
		}
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production" || c.AppEnv == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
