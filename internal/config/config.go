package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment
// variables. It is populated once at process start and treated as immutable.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	SourcesFile  string `mapstructure:"sources_file"`
	ChannelsFile string `mapstructure:"channels_file"`

	ScrapeIntervalSeconds    int64         `mapstructure:"scrape_interval"`
	ScrapeInterval           time.Duration `mapstructure:"-"`
	DeliveryDelaySeconds     int64         `mapstructure:"delivery_delay_seconds"`
	DeliveryDelay            time.Duration `mapstructure:"-"`
	InterSourceDelaySeconds  int64         `mapstructure:"inter_source_delay_seconds"`
	InterSourceDelay         time.Duration `mapstructure:"-"`
	InterChannelDelaySeconds int64         `mapstructure:"inter_channel_delay_seconds"`
	InterChannelDelay        time.Duration `mapstructure:"-"`
	StatusIntervalSeconds    int64         `mapstructure:"status_interval_seconds"`
	StatusInterval           time.Duration `mapstructure:"-"`
	FetchTimeoutSeconds      int64         `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout             time.Duration `mapstructure:"-"`

	MaxBatchSize int `mapstructure:"max_batch_size"`

	// PruneSchedule is a cron expression; the sweep runs off-peak once a day.
	PruneSchedule          string        `mapstructure:"prune_schedule"`
	KnownRetentionDays     int           `mapstructure:"known_retention_days"`
	DeliveredRetentionDays int           `mapstructure:"delivered_retention_days"`
	KnownRetention         time.Duration `mapstructure:"-"`
	DeliveredRetention     time.Duration `mapstructure:"-"`

	StorageType   string `mapstructure:"storage_type"`
	DataDir       string `mapstructure:"data_dir"`
	KnownFile     string `mapstructure:"known_file"`
	DeliveredFile string `mapstructure:"delivered_file"`
	BBoltPath     string `mapstructure:"bbolt_path"`

	MonitorEnabled bool   `mapstructure:"monitor_enabled"`
	MonitorAddr    string `mapstructure:"monitor_addr"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "rozgar-dispatch")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("channels_file", "./configs/channels.yaml")
	v.SetDefault("scrape_interval", 3600) // seconds
	v.SetDefault("delivery_delay_seconds", int64((30*time.Minute)/time.Second))
	v.SetDefault("inter_source_delay_seconds", 30)
	v.SetDefault("inter_channel_delay_seconds", 5)
	v.SetDefault("status_interval_seconds", int64((6*time.Hour)/time.Second))
	v.SetDefault("fetch_timeout_seconds", 30)
	v.SetDefault("max_batch_size", 5)
	v.SetDefault("prune_schedule", "0 2 * * *")
	v.SetDefault("known_retention_days", 7)
	v.SetDefault("delivered_retention_days", 30)
	v.SetDefault("storage_type", "json")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("known_file", "jobs.json")
	v.SetDefault("delivered_file", "delivered_jobs.json")
	v.SetDefault("bbolt_path", "./data/records.db")
	v.SetDefault("monitor_enabled", true)
	v.SetDefault("monitor_addr", ":8080")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ScrapeIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid scrape_interval (must be positive seconds)")
	}
	if cfg.DeliveryDelaySeconds < 0 {
		return nil, fmt.Errorf("invalid delivery_delay_seconds (must not be negative)")
	}
	if cfg.StatusIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid status_interval_seconds (must be positive seconds)")
	}
	if cfg.FetchTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	if cfg.MaxBatchSize <= 0 {
		return nil, fmt.Errorf("invalid max_batch_size (must be positive)")
	}
	if cfg.KnownRetentionDays <= 0 {
		return nil, fmt.Errorf("invalid known_retention_days (must be positive)")
	}
	if cfg.DeliveredRetentionDays <= 0 {
		return nil, fmt.Errorf("invalid delivered_retention_days (must be positive)")
	}

	cfg.ScrapeInterval = time.Duration(cfg.ScrapeIntervalSeconds) * time.Second
	cfg.DeliveryDelay = time.Duration(cfg.DeliveryDelaySeconds) * time.Second
	cfg.InterSourceDelay = time.Duration(cfg.InterSourceDelaySeconds) * time.Second
	cfg.InterChannelDelay = time.Duration(cfg.InterChannelDelaySeconds) * time.Second
	cfg.StatusInterval = time.Duration(cfg.StatusIntervalSeconds) * time.Second
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	cfg.KnownRetention = time.Duration(cfg.KnownRetentionDays) * 24 * time.Hour
	cfg.DeliveredRetention = time.Duration(cfg.DeliveredRetentionDays) * 24 * time.Hour

	return &cfg, nil
}

// KnownPath returns the location of the known-set file.
func (c *Config) KnownPath() string { return filepath.Join(c.DataDir, c.KnownFile) }

// DeliveredPath returns the location of the delivered-set file.
func (c *Config) DeliveredPath() string { return filepath.Join(c.DataDir, c.DeliveredFile) }
