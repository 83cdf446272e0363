package config

import (
	"os"
	"strings"
	"time"
	_ "time/tzdata" // NOTIFY_TIMEZONE must resolve in minimal containers

	"licensetracker/internal/models"
	"licensetracker/internal/notifier"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds all service configuration loaded from the environment
type Config struct {
	Port int `envconfig:"PORT" default:"8080"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	LineAccessToken string `envconfig:"LINE_CHANNEL_ACCESS_TOKEN" required:"true"`
	LineAPIURL      string `envconfig:"LINE_API_URL"`

	CronSecret     string `envconfig:"CRON_SECRET" required:"true"`
	AdminJWTSecret string `envconfig:"ADMIN_JWT_SECRET" required:"true"`

	QuotaLimit        int      `envconfig:"NOTIFY_QUOTA_LIMIT" default:"300"`
	DedupDays         int      `envconfig:"NOTIFY_DEDUP_DAYS" default:"15"`
	Timezone          string   `envconfig:"NOTIFY_TIMEZONE" default:"Asia/Bangkok"`
	Schedule          string   `envconfig:"NOTIFY_SCHEDULE"` // cron expression; empty leaves runs to the HTTP trigger
	Statuses          []string `envconfig:"NOTIFY_STATUSES" default:"Active"`
	SendConcurrency   int      `envconfig:"NOTIFY_SEND_CONCURRENCY" default:"4"`
	LookupConcurrency int      `envconfig:"NOTIFY_LOOKUP_CONCURRENCY" default:"5"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`

	// ConfigFile points at an optional TOML file with [tiers] and [quota] tables
	ConfigFile string `envconfig:"CONFIG_FILE"`

	Thresholds notifier.Thresholds `ignored:"true"`
	Location   *time.Location      `ignored:"true"`
}

// fileConfig is the TOML overlay. Absent tables keep the environment values.
type fileConfig struct {
	Tiers *notifier.Thresholds `toml:"tiers"`
	Quota *struct {
		Limit     int `toml:"limit"`
		DedupDays int `toml:"dedup_days"`
	} `toml:"quota"`
}

// Load reads .env (when present), then the environment, then the TOML overlay
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "loading .env")
	}

	c := &Config{Thresholds: notifier.DefaultThresholds}
	if err := envconfig.Process("", c); err != nil {
		return nil, errors.Wrap(err, "loading config")
	}

	if c.ConfigFile != "" {
		if err := c.applyFile(c.ConfigFile); err != nil {
			return nil, err
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown NOTIFY_TIMEZONE %q", c.Timezone)
	}
	c.Location = loc

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return errors.Wrapf(err, "failed to load config file %s", path)
	}
	if fc.Tiers != nil {
		c.Thresholds = *fc.Tiers
	}
	if fc.Quota != nil {
		if fc.Quota.Limit > 0 {
			c.QuotaLimit = fc.Quota.Limit
		}
		if fc.Quota.DedupDays > 0 {
			c.DedupDays = fc.Quota.DedupDays
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid PORT %d", c.Port)
	}
	if c.QuotaLimit <= 0 {
		return errors.Errorf("NOTIFY_QUOTA_LIMIT must be positive, got %d", c.QuotaLimit)
	}
	if c.DedupDays <= 0 {
		return errors.Errorf("NOTIFY_DEDUP_DAYS must be positive, got %d", c.DedupDays)
	}
	if c.SendConcurrency <= 0 || c.LookupConcurrency <= 0 {
		return errors.New("notification concurrency limits must be positive")
	}
	if _, err := c.LicenseStatuses(); err != nil {
		return err
	}
	return errors.Wrap(c.Thresholds.Validate(), "invalid tier thresholds")
}

// LicenseStatuses parses NOTIFY_STATUSES
func (c *Config) LicenseStatuses() ([]models.LicenseStatus, error) {
	statuses := make([]models.LicenseStatus, 0, len(c.Statuses))
	for _, raw := range c.Statuses {
		s := models.LicenseStatus(strings.TrimSpace(raw))
		if !s.Valid() {
			return nil, errors.Errorf("unknown license status %q in NOTIFY_STATUSES", raw)
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// NotifierConfig builds the run configuration; Validate must have passed
func (c *Config) NotifierConfig() notifier.Config {
	statuses, _ := c.LicenseStatuses()

	cfg := notifier.DefaultConfig()
	cfg.QuotaLimit = c.QuotaLimit
	cfg.DedupWindow = time.Duration(c.DedupDays) * 24 * time.Hour
	cfg.Thresholds = c.Thresholds
	cfg.Location = c.Location
	cfg.Statuses = statuses
	cfg.SendConcurrency = c.SendConcurrency
	cfg.LookupConcurrency = c.LookupConcurrency
	return cfg
}
