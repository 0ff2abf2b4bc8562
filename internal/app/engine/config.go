package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Apurer/pet-adoption-engine/internal/clients/http/adoption"
	petsworkflows "github.com/Apurer/pet-adoption-engine/internal/domains/pets/adapters/workflows"
)

// Device store backends.
const (
	DeviceStoreMemory = "memory"
	DeviceStoreSQLite = "sqlite"
	DeviceStoreRedis  = "redis"
)

// Config carries environment-driven settings for the engine processes.
type Config struct {
	APIURL     string
	APITimeout time.Duration
	// APIToken signs in non-interactive processes such as the worker.
	APIToken string

	DeviceStore     string
	DeviceStorePath string
	RedisURL        string

	FavoriteResortDelay time.Duration
	SponsorMaxWait      time.Duration

	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool

	// FinalizeWait bounds how long the Adopted status write holds up the hand-off.
	FinalizeWait time.Duration

	PostgresDSN string
	Port        string
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		APIURL:            envDefault("ADOPTION_API_URL", "http://localhost:8080"),
		APITimeout:        adoption.DefaultTimeout,
		APIToken:          strings.TrimSpace(os.Getenv("ADOPTION_API_TOKEN")),
		DeviceStore:       strings.ToLower(envDefault("DEVICE_STORE", DeviceStoreSQLite)),
		DeviceStorePath:   envDefault("DEVICE_STORE_PATH", "adoption-device.db"),
		RedisURL:          envDefault("REDIS_URL", "redis://localhost:6379/0"),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		Port:              envDefault("PORT", "8080"),
	}
	switch cfg.DeviceStore {
	case DeviceStoreMemory, DeviceStoreSQLite, DeviceStoreRedis:
	default:
		return Config{}, fmt.Errorf("DEVICE_STORE must be one of memory, sqlite, redis")
	}
	var err error
	if cfg.APITimeout, err = positiveDuration("ADOPTION_API_TIMEOUT_SECONDS", time.Second, cfg.APITimeout); err != nil {
		return Config{}, err
	}
	if cfg.FavoriteResortDelay, err = positiveDuration("FAVORITE_RESORT_DELAY_MS", time.Millisecond, 0); err != nil {
		return Config{}, err
	}
	if cfg.SponsorMaxWait, err = positiveDuration("SPONSOR_MAX_WAIT_SECONDS", time.Second, 0); err != nil {
		return Config{}, err
	}
	if cfg.FinalizeWait, err = positiveDuration("ADOPTED_STATUS_WAIT_SECONDS", time.Second, petsworkflows.DefaultFinalizeWait); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// positiveDuration parses key as a positive integer count of unit. Unset keys
// return fallback.
func positiveDuration(key string, unit time.Duration, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return time.Duration(n) * unit, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
