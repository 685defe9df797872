package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kode4food/timebox"
)

type (
	// Config holds configuration settings for the walkthrough service
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Sessions
		SessionStore SessionStoreConfig

		// Tink
		Tink TinkConfig

		// Runs
		StepTimeout     time.Duration
		ShutdownTimeout time.Duration
	}

	// SessionStoreConfig selects and configures where in-flight runs live
	SessionStoreConfig struct {
		Type      string
		Addr      string
		Password  string
		Prefix    string
		DB        int
		CacheSize int
		TTL       time.Duration
	}

	// TinkConfig holds the API location and the settings handed to recipe
	// steps through the portal
	TinkConfig struct {
		BaseURL      string
		ClientID     string
		ClientSecret string
		Market       string
		Locale       string
	}
)

const (
	StoreMemory  = "memory"
	StoreRedis   = "redis"
	StoreTimebox = "timebox"
)

const (
	DefaultStepTimeout     = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSessionTTL      = 30 * time.Minute

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535
	DefaultRedisDB = 0

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "walkthrough:session:"
	DefaultCacheSize     = 4096

	MaxSessionCacheSize = 1_000_000
	MaxRedisDB          = 15
	MaxStepTimeout      = 10 * time.Minute
	MaxSessionTTL       = 7 * 24 * time.Hour
)

var (
	ErrInvalidAPIPort      = errors.New("invalid API port")
	ErrInvalidStepTimeout  = errors.New("step timeout must be positive")
	ErrInvalidSessionStore = errors.New("invalid session store type")
	ErrInvalidSessionTTL   = errors.New("session TTL must be positive")
	ErrInvalidCacheSize    = errors.New("session cache size must be positive")
	ErrMissingRedisAddr    = errors.New("redis session store requires an address")
	ErrInvalidEnv          = errors.New("invalid environment value")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// server, session store, and Tink settings
func NewDefaultConfig() *Config {
	return &Config{
		APIPort: DefaultAPIPort,
		APIHost: DefaultAPIHost,
		SessionStore: SessionStoreConfig{
			Type:      StoreMemory,
			Addr:      DefaultRedisEndpoint,
			Password:  "",
			DB:        DefaultRedisDB,
			Prefix:    DefaultRedisPrefix,
			CacheSize: DefaultCacheSize,
			TTL:       DefaultSessionTTL,
		},
		StepTimeout:     DefaultStepTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvMillis(
		"STEP_TIMEOUT", &c.StepTimeout, MaxStepTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvMillis(
		"SHUTDOWN_TIMEOUT", &c.ShutdownTimeout, MaxStepTimeout,
	); err != nil {
		return err
	}

	if err := LoadSessionStoreFromEnv(&c.SessionStore, "SESSION"); err != nil {
		return err
	}
	LoadTinkFromEnv(&c.Tink, "TINK")
	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.StepTimeout <= 0 {
		return ErrInvalidStepTimeout
	}

	return c.SessionStore.Validate()
}

// Validate checks the session store settings
func (s *SessionStoreConfig) Validate() error {
	switch s.Type {
	case StoreMemory:
		if s.CacheSize <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidCacheSize, s.CacheSize)
		}
	case StoreRedis, StoreTimebox:
		if s.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSessionStore, s.Type)
	}

	if s.TTL <= 0 {
		return ErrInvalidSessionTTL
	}
	return nil
}

// TimeboxConfig returns the timebox settings for an event-sourced session
// store sharing this store's Redis location
func (s *SessionStoreConfig) TimeboxConfig() timebox.Config {
	return timebox.Config{
		Store: timebox.StoreConfig{
			Addr:         s.Addr,
			Password:     s.Password,
			DB:           s.DB,
			Prefix:       strings.TrimSuffix(s.Prefix, ":"),
			WorkerCount:  timebox.DefaultSnapshotWorkers,
			MaxQueueSize: timebox.DefaultSnapshotQueueSize,
			SaveTimeout:  timebox.DefaultSnapshotSaveTimeout,
		},
		MaxRetries: timebox.DefaultMaxRetries,
		CacheSize:  s.CacheSize,
		Workers:    true,
	}
}

// Settings returns the values recipe steps read through their portal.
// Empty values are omitted so steps fall back to their own defaults
func (t *TinkConfig) Settings() map[string]string {
	res := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			res[key] = value
		}
	}
	set("client_id", t.ClientID)
	set("client_secret", t.ClientSecret)
	set("market", t.Market)
	set("locale", t.Locale)
	return res
}

// LoadSessionStoreFromEnv loads session store configuration from
// environment variables with the given prefix (e.g., "SESSION")
func LoadSessionStoreFromEnv(s *SessionStoreConfig, prefix string) error {
	if typ := os.Getenv(prefix + "_STORE"); typ != "" {
		s.Type = typ
	}
	if addr := os.Getenv(prefix + "_REDIS_ADDR"); addr != "" {
		s.Addr = addr
	}
	if password := os.Getenv(prefix + "_REDIS_PASSWORD"); password != "" {
		s.Password = password
	}
	if envPrefix := os.Getenv(prefix + "_REDIS_PREFIX"); envPrefix != "" {
		s.Prefix = envPrefix
	}
	if dbStr := os.Getenv(prefix + "_REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil || db < 0 || db > MaxRedisDB {
			return fmt.Errorf("%w: %s_REDIS_DB=%q",
				ErrInvalidEnv, prefix, dbStr)
		}
		s.DB = db
	}
	if err := loadEnvInt(
		prefix+"_CACHE_SIZE", &s.CacheSize, 0, MaxSessionCacheSize,
	); err != nil {
		return err
	}
	return loadEnvMillis(prefix+"_TTL", &s.TTL, MaxSessionTTL)
}

// LoadTinkFromEnv loads Tink settings from environment variables with the
// given prefix (e.g., "TINK")
func LoadTinkFromEnv(t *TinkConfig, prefix string) {
	if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
		t.BaseURL = v
	}
	if v := os.Getenv(prefix + "_CLIENT_ID"); v != "" {
		t.ClientID = v
	}
	if v := os.Getenv(prefix + "_CLIENT_SECRET"); v != "" {
		t.ClientSecret = v
	}
	if v := os.Getenv(prefix + "_MARKET"); v != "" {
		t.Market = v
	}
	if v := os.Getenv(prefix + "_LOCALE"); v != "" {
		t.Locale = v
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("%w: %s=%d out of range [%d, %d]",
			ErrInvalidEnv, key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

// loadEnvMillis reads a positive millisecond count from key into *dst
func loadEnvMillis(key string, dst *time.Duration, max time.Duration) error {
	ms := int64(*dst / time.Millisecond)
	if err := loadEnvInt(key, &ms, 0, int64(max/time.Millisecond)); err != nil {
		return err
	}
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}
