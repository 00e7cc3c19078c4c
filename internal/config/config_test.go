package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  port: "9000"
store:
  driver: Redis
redis:
  addr: "localhost:6379"
course:
  ttl: 5m
lesson:
  advance_delay: 500ms
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REDIS_ADDR", "redis:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("expected port 9000, got %q", cfg.Server.Port)
	}
	if cfg.Store.Driver != DriverRedis {
		t.Fatalf("expected driver normalized to redis, got %q", cfg.Store.Driver)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Fatalf("env override ignored: %q", cfg.Redis.Addr)
	}
	if got := Duration(cfg.Course.TTL, time.Minute); got != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %s", got)
	}
	if got := Duration(cfg.Lesson.AdvanceDelay, time.Second); got != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != DriverBolt || cfg.Store.BoltPath == "" {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Server.Port == "" {
		t.Fatalf("expected a default port")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDurationFallback(t *testing.T) {
	if got := Duration("", 3*time.Second); got != 3*time.Second {
		t.Fatalf("empty should fall back, got %s", got)
	}
	if got := Duration("soon", 3*time.Second); got != 3*time.Second {
		t.Fatalf("invalid should fall back, got %s", got)
	}
	if got := Duration("-1s", 3*time.Second); got != 3*time.Second {
		t.Fatalf("negative should fall back, got %s", got)
	}
	if got := Duration("0s", 3*time.Second); got != 0 {
		t.Fatalf("zero is valid, got %s", got)
	}
}
