package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config aggregates application configuration. Values come from defaults, then
// the YAML file named by CONFIG_FILE, then environment variables.
type Config struct {
	Env      string
	HTTPAddr string
	LogLevel string

	Storage     string
	MongoURI    string
	MongoDB     string
	PostgresDSN string
	SQLitePath  string
	SQLDebug    bool

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	EventSource        string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	IdempotencyTTL   time.Duration
	CalendarTimezone string
	RateLimitRPS     float64
	RateLimitBurst   int
	DurationCacheTTL time.Duration
	FixturesPath     string
}

func Defaults() Config {
	return Config{
		Env:                "dev",
		HTTPAddr:           ":8080",
		LogLevel:           "info",
		Storage:            StorageMemory,
		MongoDB:            "rentcal",
		SQLitePath:         "rentcal.db",
		EventSource:        "app://rentcal",
		OutboxPollInterval: 500 * time.Millisecond,
		RetryBackoff:       []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
		IdempotencyTTL:     168 * time.Hour,
		CalendarTimezone:   "UTC",
		RateLimitRPS:       20,
		RateLimitBurst:     40,
		DurationCacheTTL:   10 * time.Minute,
	}
}

// Load parses configuration from the optional config file and the current environment.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%w: MONGO_URI is required for mongo storage", ErrInvalidConfig)
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: POSTGRES_DSN is required for postgres storage", ErrInvalidConfig)
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH is required for sqlite storage", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}
	if _, err := time.LoadLocation(c.CalendarTimezone); err != nil {
		return fmt.Errorf("%w: calendar timezone: %v", ErrInvalidConfig, err)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Location is the zone used to decide which day is today on the calendar.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.CalendarTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RelayEnabled reports whether outbox records are published to Kafka.
func (c Config) RelayEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

type fileConfig struct {
	Env      string `yaml:"env"`
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`
	Storage  struct {
		Mode        string `yaml:"mode"`
		MongoURI    string `yaml:"mongo_uri"`
		MongoDB     string `yaml:"mongo_db"`
		PostgresDSN string `yaml:"postgres_dsn"`
		SQLitePath  string `yaml:"sqlite_path"`
		SQLDebug    bool   `yaml:"sql_debug"`
	} `yaml:"storage"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		TopicPrefix  string   `yaml:"topic_prefix"`
		Source       string   `yaml:"source"`
		PollInterval string   `yaml:"poll_interval"`
		RetryBackoff []string `yaml:"retry_backoff"`
	} `yaml:"kafka"`
	IdempotencyTTL string `yaml:"idempotency_ttl"`
	Calendar       struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"calendar"`
	RateLimit struct {
		RPS   *float64 `yaml:"rps"`
		Burst *int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	DurationCacheTTL string `yaml:"duration_cache_ttl"`
	FixturesPath     string `yaml:"fixtures_path"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	setString(&c.Env, fc.Env)
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.Storage, strings.ToLower(fc.Storage.Mode))
	setString(&c.MongoURI, fc.Storage.MongoURI)
	setString(&c.MongoDB, fc.Storage.MongoDB)
	setString(&c.PostgresDSN, fc.Storage.PostgresDSN)
	setString(&c.SQLitePath, fc.Storage.SQLitePath)
	c.SQLDebug = c.SQLDebug || fc.Storage.SQLDebug
	if len(fc.Kafka.Brokers) > 0 {
		c.KafkaBrokers = append([]string(nil), fc.Kafka.Brokers...)
	}
	setString(&c.KafkaTopicPrefix, fc.Kafka.TopicPrefix)
	setString(&c.EventSource, fc.Kafka.Source)
	setString(&c.CalendarTimezone, fc.Calendar.Timezone)
	setString(&c.FixturesPath, fc.FixturesPath)
	if fc.RateLimit.RPS != nil {
		c.RateLimitRPS = *fc.RateLimit.RPS
	}
	if fc.RateLimit.Burst != nil {
		c.RateLimitBurst = *fc.RateLimit.Burst
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"kafka.poll_interval", fc.Kafka.PollInterval, &c.OutboxPollInterval},
		{"idempotency_ttl", fc.IdempotencyTTL, &c.IdempotencyTTL},
		{"duration_cache_ttl", fc.DurationCacheTTL, &c.DurationCacheTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s duration: %w", d.name, err)
		}
		*d.dst = v
	}
	if len(fc.Kafka.RetryBackoff) > 0 {
		backoff, err := parseBackoff(strings.Join(fc.Kafka.RetryBackoff, ","))
		if err != nil {
			return err
		}
		c.RetryBackoff = backoff
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Env = getEnv("APP_ENV", c.Env)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Storage = strings.ToLower(getEnv("STORAGE", c.Storage))
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDB = getEnv("MONGO_DB", c.MongoDB)
	c.PostgresDSN = getEnv("POSTGRES_DSN", c.PostgresDSN)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.KafkaTopicPrefix = getEnv("KAFKA_TOPIC_PREFIX", c.KafkaTopicPrefix)
	c.EventSource = getEnv("EVENT_SOURCE", c.EventSource)
	c.CalendarTimezone = getEnv("CALENDAR_TZ", c.CalendarTimezone)
	c.FixturesPath = getEnv("OCCUPANCY_FIXTURES", c.FixturesPath)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.KafkaBrokers = nil
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.KafkaBrokers = append(c.KafkaBrokers, b)
			}
		}
	}

	var err error
	if c.SQLDebug, err = parseBoolEnv("SQL_DEBUG", c.SQLDebug); err != nil {
		return err
	}
	if c.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", c.IdempotencyTTL); err != nil {
		return err
	}
	if c.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", c.OutboxPollInterval); err != nil {
		return err
	}
	if c.DurationCacheTTL, err = parseDurationEnv("DURATION_CACHE_TTL", c.DurationCacheTTL); err != nil {
		return err
	}
	if c.RateLimitRPS, err = parseFloatEnv("RATE_LIMIT_RPS", c.RateLimitRPS); err != nil {
		return err
	}
	if c.RateLimitBurst, err = parseIntEnv("RATE_LIMIT_BURST", c.RateLimitBurst); err != nil {
		return err
	}
	if raw := os.Getenv("RETRY_BACKOFF"); raw != "" {
		if c.RetryBackoff, err = parseBackoff(raw); err != nil {
			return err
		}
	}
	return nil
}

func parseBackoff(raw string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(raw, ",") {
		val := strings.TrimSpace(part)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", part, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number: %w", key, err)
	}
	return v, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}
