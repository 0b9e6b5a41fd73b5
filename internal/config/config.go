// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application settings. It is read once at startup.
type Config struct {
	AppPort string

	JWTSecret string
	TokenTTL  time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	GoogleMapAPIKey      string
	PlacesRankPreference string
	PlacesRateLimit      float64

	DatabaseDriver string
	DatabaseDSN    string

	RabbitMQURL string
	LogLevel    string
}

var requiredKeys = []string{
	"JWT_SECRET",
	"GOOGLE_CLIENT_ID",
	"GOOGLE_CLIENT_SECRET",
	"GOOGLE_CALLBACK_URL",
	"GOOGLE_MAP_API_KEY",
	"DATABASE_DSN",
}

// LoadDotEnv loads variables from path into the process environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PLACES_RANK_PREFERENCE", "POPULARITY")
	v.SetDefault("PLACES_RATE_LIMIT", "5")
	v.SetDefault("TOKEN_TTL", "24h")
}

// Load reads the configuration from v, falling back to the environment.
// It reports every missing required key at once.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg := &Config{
		AppPort:              v.GetString("APP_PORT"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		GoogleClientID:       v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:    v.GetString("GOOGLE_CALLBACK_URL"),
		GoogleMapAPIKey:      v.GetString("GOOGLE_MAP_API_KEY"),
		PlacesRankPreference: strings.ToUpper(v.GetString("PLACES_RANK_PREFERENCE")),
		DatabaseDriver:       strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:          v.GetString("DATABASE_DSN"),
		RabbitMQURL:          v.GetString("RABBITMQ_URL"),
		LogLevel:             v.GetString("LOG_LEVEL"),
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.DatabaseDriver)
	}

	switch cfg.PlacesRankPreference {
	case "POPULARITY", "DISTANCE":
	default:
		return nil, fmt.Errorf("PLACES_RANK_PREFERENCE must be POPULARITY or DISTANCE, got %q", cfg.PlacesRankPreference)
	}

	ttl, err := time.ParseDuration(v.GetString("TOKEN_TTL"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be a positive duration, got %q", v.GetString("TOKEN_TTL"))
	}
	cfg.TokenTTL = ttl

	rps, err := strconv.ParseFloat(v.GetString("PLACES_RATE_LIMIT"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("PLACES_RATE_LIMIT must be a positive number, got %q", v.GetString("PLACES_RATE_LIMIT"))
	}
	cfg.PlacesRateLimit = rps

	return cfg, nil
}
