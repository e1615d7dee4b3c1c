// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/1009rishit/Case-data/internal/court"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Logging LoggingConfig  `mapstructure:"logging"`
	HTTP    HTTPConfig     `mapstructure:"http"`
	Captcha CaptchaConfig  `mapstructure:"captcha"`
	Crawl   CrawlConfig    `mapstructure:"crawl"`
	Archive ArchiveConfig  `mapstructure:"archive"`
	Storage StorageConfig  `mapstructure:"storage"`
	DB      DBConfig       `mapstructure:"db"`
	PubSub  PubSubConfig   `mapstructure:"pubsub"`
	Targets []court.Target `mapstructure:"targets"`
}

// ServerConfig controls the status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig configures session HTTP behavior.
type HTTPConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	UserAgent        string `mapstructure:"user_agent"`
}

// Timeout converts the configured timeout into a duration.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CaptchaConfig points at the solving service.
type CaptchaConfig struct {
	BaseURL             string `mapstructure:"base_url"`
	Key                 string `mapstructure:"key"`
	InitialDelaySeconds int    `mapstructure:"initial_delay_seconds"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	MaxPolls            int    `mapstructure:"max_polls"`
}

// CrawlConfig governs the crawl state machine.
type CrawlConfig struct {
	CaptchaRetries int `mapstructure:"captcha_retries"`
	SessionWorkers int `mapstructure:"session_workers"`
}

// ArchiveConfig governs the retrieval and archival pipeline.
type ArchiveConfig struct {
	Workers  int    `mapstructure:"workers"`
	LocalDir string `mapstructure:"local_dir"`
}

// StorageConfig selects and parameterizes the blob store backend.
type StorageConfig struct {
	Provider string `mapstructure:"provider"` // gcs | local | memory
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	LocalDir string `mapstructure:"local_dir"`
}

// DBConfig selects and parameterizes the metadata store backend.
type DBConfig struct {
	Provider string `mapstructure:"provider"` // postgres | memory
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for archival event notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CASEDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/casedata/")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	applyTargetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("http.timeout_seconds", 20)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 2000)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36")
	v.SetDefault("captcha.initial_delay_seconds", 5)
	v.SetDefault("captcha.poll_interval_seconds", 5)
	v.SetDefault("captcha.max_polls", 6)
	v.SetDefault("crawl.captcha_retries", 4)
	v.SetDefault("crawl.session_workers", 3)
	v.SetDefault("archive.workers", 4)
	v.SetDefault("archive.local_dir", "data/archive")
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_dir", "data/blobs")
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.max_conns", 8)
}

func applyTargetDefaults(cfg *Config) {
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		if t.Mode == "" {
			t.Mode = court.ModePaged
		}
		if t.PageSize <= 0 {
			t.PageSize = 50
		}
		if t.LookbackDays <= 0 {
			t.LookbackDays = 60
		}
		if t.DateFormat == "" {
			t.DateFormat = "02-01-2006"
		}
		if t.Tag == "" {
			t.Tag = strings.ToLower(strings.ReplaceAll(t.Name, " ", "_"))
		}
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Crawl.CaptchaRetries < 1 || c.Crawl.CaptchaRetries > 10 {
		return fmt.Errorf("crawl.captcha_retries must be between 1 and 10")
	}
	if c.Crawl.SessionWorkers <= 0 {
		return fmt.Errorf("crawl.session_workers must be > 0")
	}
	if c.Archive.Workers <= 0 {
		return fmt.Errorf("archive.workers must be > 0")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set when storage.provider is gcs")
		}
	case "local", "memory":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	switch c.DB.Provider {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db provider %q", c.DB.Provider)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.Topic == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic must be set when pubsub is enabled")
	}
	for _, t := range c.Targets {
		if t.Name == "" || t.BaseURL == "" || t.Extractor == "" {
			return fmt.Errorf("target %q: name, base_url and extractor are required", t.Name)
		}
		if t.Mode != court.ModePaged && t.Mode != court.ModeDateCell {
			return fmt.Errorf("target %q: unknown mode %q", t.Name, t.Mode)
		}
		if t.Mode == court.ModeDateCell && len(t.CaseTypes) == 0 {
			return fmt.Errorf("target %q: datecell mode requires case_types", t.Name)
		}
	}
	return nil
}
