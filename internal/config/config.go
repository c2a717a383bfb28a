// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Port            string        `validate:"required,numeric"`
	Env             string        `validate:"required,oneof=development test staging production"`
	CataloguePath   string        `validate:"required"`
	AvailabilityURL string        `validate:"required,url"`
	CacheTTL        time.Duration `validate:"gt=0"`
	HTTPTimeout     time.Duration `validate:"gt=0"`
	UpstreamRetries int           `validate:"gte=0,lte=10"`
	UpstreamRPS     float64       `validate:"gte=0"`
	RedisURL        string        `validate:"omitempty,url"`

	// DefaultMaxDistanceKm applies to searches that give a reference point but no radius
	DefaultMaxDistanceKm *float64 `validate:"omitempty,gt=0"`
}

// Load reads configuration from environment variables with sensible defaults.
// Values in a .env file in the working directory are used when the variable is unset.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnv("PORT", "3000"),
		Env:                  getEnv("ENV", "development"),
		CataloguePath:        getEnv("CATALOGUE_PATH", "data/HDBCarparkInformation.csv"),
		AvailabilityURL:      getEnv("AVAILABILITY_URL", "https://api.data.gov.sg/v1/transport/carpark-availability"),
		CacheTTL:             getDurationEnv("CACHE_TTL_SECONDS", 60) * time.Second,
		HTTPTimeout:          getDurationEnv("HTTP_TIMEOUT_SECONDS", 10) * time.Second,
		UpstreamRetries:      getIntEnv("UPSTREAM_RETRIES", 3),
		UpstreamRPS:          getFloatEnv("UPSTREAM_RPS", 1),
		RedisURL:             getEnv("REDIS_URL", ""),
		DefaultMaxDistanceKm: getOptionalFloatEnv("DEFAULT_MAX_DISTANCE_KM"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(getIntEnv(key, defaultSeconds))
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if f := getOptionalFloatEnv(key); f != nil {
		return *f
	}
	return defaultValue
}

func getOptionalFloatEnv(key string) *float64 {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}
