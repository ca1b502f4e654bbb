package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
quiz:
  ttl: 2m
  default_slug: mindset-financier
  auto_advance: 500ms
progress:
  backend: sqlite
  sqlite_path: /tmp/progress.db
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected server/redis: %+v %+v", cfg.Server, cfg.Redis)
	}
	if cfg.Progress.Backend != ProgressSQLite || cfg.Progress.SQLitePath != "/tmp/progress.db" {
		t.Errorf("unexpected progress: %+v", cfg.Progress)
	}
	if cfg.Quiz.ContentDir != "content" || cfg.Log.Level != "info" {
		t.Errorf("defaults not applied: content=%q level=%q", cfg.Quiz.ContentDir, cfg.Log.Level)
	}
	if got := TTLDuration(cfg.Quiz.AutoAdvance, time.Second); got != 500*time.Millisecond {
		t.Errorf("auto advance = %v", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("OPQUIZ_POSTGRES_URL", "postgres://quiz:quiz@db:5432/quiz")
	t.Setenv("OPQUIZ_PROGRESS_BACKEND", "redis")
	t.Setenv("OPQUIZ_REDIS_DB", "3")
	t.Setenv("OPQUIZ_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Postgres.URL != "postgres://quiz:quiz@db:5432/quiz" {
		t.Errorf("postgres url = %q", cfg.Postgres.URL)
	}
	if cfg.Progress.Backend != ProgressRedis || cfg.Redis.DB != 3 || cfg.Log.Level != "debug" {
		t.Errorf("env overrides not applied: %+v %+v %+v", cfg.Progress, cfg.Redis, cfg.Log)
	}
}

func TestBackendDefaultsFollowRedis(t *testing.T) {
	cfg, err := Load(writeConfig(t, "redis:\n  addr: localhost:6379\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Progress.Backend != ProgressRedis {
		t.Errorf("backend = %q, want redis", cfg.Progress.Backend)
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Progress.Backend != ProgressMemory {
		t.Errorf("backend = %q, want memory", cfg.Progress.Backend)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	if _, err := Load(writeConfig(t, "progress:\n  backend: etcd\n")); err == nil {
		t.Error("expected unknown backend to fail")
	}
	if _, err := Load(writeConfig(t, "progress:\n  backend: redis\n")); err == nil {
		t.Error("expected redis backend without addr to fail")
	}
}

func TestTTLDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":      time.Minute,
		"bogus": time.Minute,
		"90s":   90 * time.Second,
		"250ms": 250 * time.Millisecond,
	}
	for raw, want := range cases {
		if got := TTLDuration(raw, time.Minute); got != want {
			t.Errorf("TTLDuration(%q) = %v, want %v", raw, got, want)
		}
	}
}
