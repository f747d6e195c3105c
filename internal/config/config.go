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

const maxBatchSize = 500

// Config is the process configuration.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	HTTPAddr    string `yaml:"http_addr"`
	RedisAddr   string `yaml:"redis_addr"`

	Log LogConfig `yaml:"log"`

	Location string   `yaml:"location"`
	Regions  []string `yaml:"regions"`

	DayAheadURL     string        `yaml:"day_ahead_url"`
	DayAheadToken   string        `yaml:"day_ahead_token"`
	CatalogURL      string        `yaml:"catalog_url"`
	CatalogToken    string        `yaml:"catalog_token"`
	FeedTimeout     time.Duration `yaml:"feed_timeout"`
	IngestBatch     int           `yaml:"ingest_batch_size"`
	DailyLookback   int           `yaml:"daily_lookback_days"`
	DayShare        float64       `yaml:"day_share"`
	FlexibleShare   float64       `yaml:"flexible_day_share"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	StaticPostcodes []string      `yaml:"postcodes"`

	JWTSecret         string `yaml:"jwt_secret"`
	IngestSecret      string `yaml:"ingest_secret"`
	IngestSkewSeconds int    `yaml:"ingest_max_skew_seconds"`

	Schedule ScheduleConfig `yaml:"schedule"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ScheduleConfig holds cron expressions. An empty expression disables the job.
type ScheduleConfig struct {
	IngestLatest string `yaml:"ingest_latest"`
	Averages     string `yaml:"averages"`
	CatalogSync  string `yaml:"catalog_sync"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		HTTPAddr:          ":8080",
		Log:               LogConfig{Level: "info", Format: "json"},
		Location:          "Europe/Helsinki",
		Regions:           []string{"FI"},
		FeedTimeout:       10 * time.Second,
		IngestBatch:       maxBatchSize,
		DailyLookback:     2,
		DayShare:          0.85,
		CacheTTL:          15 * time.Minute,
		IngestSkewSeconds: 300,
		Schedule: ScheduleConfig{
			IngestLatest: "15 * * * *",
			Averages:     "20 * * * *",
			CatalogSync:  "0 4 * * *",
		},
	}
}

// Load reads defaults, then the YAML file named by CONFIG_FILE, then
// environment overrides, and validates the result.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// LoadFrom is Load with an explicit YAML path. An empty path skips the file.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("LOG_FORMAT", cfg.Log.Format)
	cfg.Location = getenvDefault("PRICE_LOCATION", cfg.Location)
	if regions := splitCSV(os.Getenv("SPOT_REGIONS")); len(regions) > 0 {
		cfg.Regions = regions
	}
	cfg.DayAheadURL = getenvDefault("DAY_AHEAD_URL", cfg.DayAheadURL)
	cfg.DayAheadToken = getenvDefault("DAY_AHEAD_TOKEN", cfg.DayAheadToken)
	cfg.CatalogURL = getenvDefault("CATALOG_URL", cfg.CatalogURL)
	cfg.CatalogToken = getenvDefault("CATALOG_TOKEN", cfg.CatalogToken)
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", cfg.JWTSecret))
	cfg.IngestSecret = getenvDefault("INGEST_HMAC_SECRET", cfg.IngestSecret)
	if codes := splitCSV(os.Getenv("CATALOG_POSTCODES")); len(codes) > 0 {
		cfg.StaticPostcodes = codes
	}
	cfg.Schedule.IngestLatest = getenvDefault("SCHEDULE_INGEST_LATEST", cfg.Schedule.IngestLatest)
	cfg.Schedule.Averages = getenvDefault("SCHEDULE_AVERAGES", cfg.Schedule.Averages)
	cfg.Schedule.CatalogSync = getenvDefault("SCHEDULE_CATALOG_SYNC", cfg.Schedule.CatalogSync)

	var err error
	if cfg.FeedTimeout, err = getenvDuration("FEED_TIMEOUT", cfg.FeedTimeout); err != nil {
		return err
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", cfg.CacheTTL); err != nil {
		return err
	}
	if cfg.IngestBatch, err = getenvInt("INGEST_BATCH_SIZE", cfg.IngestBatch); err != nil {
		return err
	}
	if cfg.DailyLookback, err = getenvInt("DAILY_LOOKBACK_DAYS", cfg.DailyLookback); err != nil {
		return err
	}
	if cfg.IngestSkewSeconds, err = getenvInt("INGEST_MAX_SKEW_SECONDS", cfg.IngestSkewSeconds); err != nil {
		return err
	}
	if cfg.DayShare, err = getenvFloat("DAY_SHARE", cfg.DayShare); err != nil {
		return err
	}
	if cfg.FlexibleShare, err = getenvFloat("FLEXIBLE_DAY_SHARE", cfg.FlexibleShare); err != nil {
		return err
	}
	return nil
}

// Validate checks required settings and ranges.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("config: DATABASE_URL required"))
	}
	if c.DayShare <= 0 || c.DayShare > 1 {
		errs = append(errs, fmt.Errorf("config: day share %v outside (0,1]", c.DayShare))
	}
	if c.FlexibleShare < 0 || c.FlexibleShare > 1 {
		errs = append(errs, fmt.Errorf("config: flexible day share %v outside [0,1]", c.FlexibleShare))
	}
	if c.IngestBatch < 1 || c.IngestBatch > maxBatchSize {
		errs = append(errs, fmt.Errorf("config: ingest batch size %d outside 1..%d", c.IngestBatch, maxBatchSize))
	}
	if c.DailyLookback < 0 {
		errs = append(errs, errors.New("config: daily lookback must not be negative"))
	}
	if len(c.Regions) == 0 {
		errs = append(errs, errors.New("config: at least one region required"))
	}
	if _, err := time.LoadLocation(c.Location); err != nil {
		errs = append(errs, fmt.Errorf("config: location %q: %w", c.Location, err))
	}
	return errors.Join(errs...)
}

// IngestMaxSkew returns the accepted push-ingest clock skew.
func (c Config) IngestMaxSkew() time.Duration {
	return time.Duration(c.IngestSkewSeconds) * time.Second
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
