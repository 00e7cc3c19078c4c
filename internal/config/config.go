package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers accepted by store.driver.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Store struct {
		Driver   string `yaml:"driver"`
		BoltPath string `yaml:"bolt_path"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Course struct {
		TTL string `yaml:"ttl"`
	} `yaml:"course"`
	Lesson struct {
		AdvanceDelay string `yaml:"advance_delay"`
		RevealDelay  string `yaml:"reveal_delay"`
	} `yaml:"lesson"`
	Preview struct {
		Debounce string `yaml:"debounce"`
	} `yaml:"preview"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error: defaults plus environment are used.
func Load(path string) (Config, error) {
	cfg := Config{}
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	override(&c.Server.Port, "PORT")
	override(&c.Store.Driver, "STORE_DRIVER")
	override(&c.Store.BoltPath, "BOLT_PATH")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Postgres.URL, "DATABASE_URL")
	override(&c.Log.Mode, "LOG_MODE")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = DriverBolt
	}
	if c.Store.BoltPath == "" {
		c.Store.BoltPath = "codemaster.db"
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	return fallback
}
