// Package config loads engine configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kode4food/timebox"

	"github.com/docketry/docket/internal/activity"
)

// Config holds configuration settings for the docket engine
type Config struct {
	// API Server
	APIHost  string
	APIPort  int
	LogLevel string

	// Stores & Archiving
	InstanceStore timebox.StoreConfig
	RegistryStore timebox.StoreConfig
	ArchiveBucket string

	// Templates
	TemplateDir string

	// Side effects
	NoticeWebhookURL string
	SubjectEndpoint  string
	EffectTimeout    time.Duration

	// Activities
	Activity activity.RetryPolicy

	// Engine
	InstanceCacheSize int
	ShutdownTimeout   time.Duration
}

const (
	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535
	DefaultRedisDB = 0

	DefaultRedisEndpoint       = "localhost:6379"
	DefaultRedisPrefix         = "docket"
	DefaultSnapshotWorkers     = 4
	DefaultSnapshotQueueSize   = 1000
	DefaultSnapshotSaveTimeout = 30 * time.Second
	DefaultCacheSize           = 4096

	DefaultEffectTimeout   = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	MaxInstanceCacheSize = 1_000_000
	MaxActivityAttempts  = 1000
	MaxActivityBackoffMs = int64(24 * time.Hour / time.Millisecond)
)

var (
	ErrInvalidAPIPort             = errors.New("invalid API port")
	ErrInvalidActivityMaxAttempts = errors.New(
		"activity max attempts cannot be zero",
	)
	ErrInvalidActivityInitBackoff = errors.New(
		"activity initial backoff must be positive",
	)
	ErrInvalidActivityMaxBackoff = errors.New(
		"activity max backoff must be positive",
	)
	ErrActivityMaxBackoffTooSmall = errors.New(
		"activity max backoff must be >= activity initial backoff",
	)
	ErrInvalidActivityBackoffType = errors.New(
		"invalid activity backoff type",
	)
)

// NewDefaultConfig creates a configuration with sensible defaults for all
// engine settings, stores, and activity retry behavior
func NewDefaultConfig() *Config {
	return &Config{
		APIPort: DefaultAPIPort,
		APIHost: DefaultAPIHost,
		InstanceStore: timebox.StoreConfig{
			Addr:         DefaultRedisEndpoint,
			Password:     "",
			DB:           DefaultRedisDB,
			Prefix:       DefaultRedisPrefix,
			WorkerCount:  DefaultSnapshotWorkers,
			MaxQueueSize: DefaultSnapshotQueueSize,
			SaveTimeout:  DefaultSnapshotSaveTimeout,
		},
		RegistryStore: timebox.StoreConfig{
			Addr:         DefaultRedisEndpoint,
			Password:     "",
			DB:           DefaultRedisDB,
			Prefix:       DefaultRedisPrefix,
			WorkerCount:  DefaultSnapshotWorkers,
			MaxQueueSize: DefaultSnapshotQueueSize,
			SaveTimeout:  DefaultSnapshotSaveTimeout,
			TrimEvents:   true,
		},
		Activity:          activity.DefaultRetryPolicy(),
		EffectTimeout:     DefaultEffectTimeout,
		InstanceCacheSize: DefaultCacheSize,
		ShutdownTimeout:   DefaultShutdownTimeout,
		LogLevel:          "info",
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	LoadStoreConfigFromEnv(&c.InstanceStore, "INSTANCE")
	LoadStoreConfigFromEnv(&c.RegistryStore, "REGISTRY")

	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if dir := os.Getenv("TEMPLATE_DIR"); dir != "" {
		c.TemplateDir = dir
	}
	if url := os.Getenv("NOTICE_WEBHOOK_URL"); url != "" {
		c.NoticeWebhookURL = url
	}
	if url := os.Getenv("SUBJECT_ENDPOINT"); url != "" {
		c.SubjectEndpoint = url
	}
	if bucket := os.Getenv("ARCHIVE_BUCKET"); bucket != "" {
		c.ArchiveBucket = bucket
	}
	if backoffType := os.Getenv("ACTIVITY_BACKOFF_TYPE"); backoffType != "" {
		c.Activity.BackoffType = backoffType
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}

	if err := loadEnvInt(
		"INSTANCE_CACHE_SIZE", &c.InstanceCacheSize, 0, MaxInstanceCacheSize,
	); err != nil {
		return err
	}

	if err := loadEnvInt(
		"ACTIVITY_MAX_ATTEMPTS", &c.Activity.MaxAttempts,
		0, MaxActivityAttempts,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"ACTIVITY_INITIAL_BACKOFF", &c.Activity.InitBackoff,
		0, MaxActivityBackoffMs,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"ACTIVITY_MAX_BACKOFF", &c.Activity.MaxBackoff,
		0, MaxActivityBackoffMs,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.Activity.MaxAttempts == 0 {
		return ErrInvalidActivityMaxAttempts
	}

	if c.Activity.InitBackoff <= 0 {
		return ErrInvalidActivityInitBackoff
	}

	if c.Activity.MaxBackoff <= 0 {
		return ErrInvalidActivityMaxBackoff
	}

	if c.Activity.MaxBackoff < c.Activity.InitBackoff {
		return ErrActivityMaxBackoffTooSmall
	}

	if c.Activity.BackoffType != activity.BackoffTypeFixed &&
		c.Activity.BackoffType != activity.BackoffTypeLinear &&
		c.Activity.BackoffType != activity.BackoffTypeExponential {
		return fmt.Errorf("%w: %s",
			ErrInvalidActivityBackoffType, c.Activity.BackoffType)
	}

	return nil
}

// LoadStoreConfigFromEnv loads Redis store configuration from environment
// variables with the given prefix (e.g., "INSTANCE" or "REGISTRY")
func LoadStoreConfigFromEnv(s *timebox.StoreConfig, prefix string) {
	if addr := os.Getenv(prefix + "_REDIS_ADDR"); addr != "" {
		s.Addr = addr
	}
	if password := os.Getenv(prefix + "_REDIS_PASSWORD"); password != "" {
		s.Password = password
	}
	if dbStr := os.Getenv(prefix + "_REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err == nil {
			s.DB = db
		}
	}
	if envPrefix := os.Getenv(prefix + "_REDIS_PREFIX"); envPrefix != "" {
		s.Prefix = envPrefix
	}
	if envCount := os.Getenv(prefix + "_SNAPSHOT_WORKERS"); envCount != "" {
		if wc, err := strconv.Atoi(envCount); err == nil && wc >= 0 {
			s.WorkerCount = wc
		}
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
