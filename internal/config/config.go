package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gatemaster/internal/validator"
)

type Config struct {
	API struct {
		BaseURL string `yaml:"base_url" validate:"required,url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Session struct {
		Store           string `yaml:"store" validate:"omitempty,oneof=file redis memory"`
		Path            string `yaml:"path"`
		RefreshInterval string `yaml:"refresh_interval"`
	} `yaml:"session"`
	Redis struct {
		URL       string `yaml:"url" validate:"required_if=Store redis"`
		KeyPrefix string `yaml:"key_prefix"`
		// Store mirrors session.store so the required_if rule can see it.
		Store string `yaml:"-"`
	} `yaml:"redis"`
	Cache struct {
		TTL string `yaml:"ttl"`
	} `yaml:"cache"`
	Practice struct {
		Duration    string `yaml:"duration"`
		AllowReveal *bool  `yaml:"allow_reveal"`
	} `yaml:"practice"`
	Challenge struct {
		Duration    string `yaml:"duration"`
		AllowReveal *bool  `yaml:"allow_reveal"`
	} `yaml:"challenge"`
	Watch struct {
		Addr string `yaml:"addr"`
	} `yaml:"watch"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
		Format string `yaml:"format" validate:"omitempty,oneof=pretty json"`
	} `yaml:"log"`
}

// DefaultPath is the config location when no flag or env var is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Dir is the per-user configuration directory for gatemaster.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = "."
	}
	return filepath.Join(base, "gatemaster")
}

// Load reads YAML config from path, then applies .env and environment
// overrides and fills defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.API.BaseURL, "GATEMASTER_API_URL")
	override(&cfg.Log.Level, "GATEMASTER_LOG_LEVEL")
	override(&cfg.Log.Format, "GATEMASTER_LOG_FORMAT")
	override(&cfg.Session.Store, "GATEMASTER_STORE")
	override(&cfg.Redis.URL, "GATEMASTER_REDIS_URL")
	override(&cfg.Watch.Addr, "GATEMASTER_WATCH_ADDR")
}

func applyDefaults(cfg *Config) {
	cfg.API.BaseURL = strings.TrimRight(orDefault(cfg.API.BaseURL, "http://localhost:8000/api"), "/")
	cfg.Session.Store = orDefault(cfg.Session.Store, "file")
	cfg.Session.Path = orDefault(cfg.Session.Path, filepath.Join(Dir(), "session.json"))
	cfg.Redis.KeyPrefix = orDefault(cfg.Redis.KeyPrefix, "gatemaster:")
	cfg.Redis.Store = cfg.Session.Store
	cfg.Log.Format = orDefault(cfg.Log.Format, "pretty")
	if cfg.Practice.AllowReveal == nil {
		v := true
		cfg.Practice.AllowReveal = &v
	}
	if cfg.Challenge.AllowReveal == nil {
		v := false
		cfg.Challenge.AllowReveal = &v
	}
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
