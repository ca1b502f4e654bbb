package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Progress backends accepted by progress.backend.
const (
	ProgressMemory = "memory"
	ProgressRedis  = "redis"
	ProgressSQLite = "sqlite"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL           string `yaml:"ttl"`
		ContentDir    string `yaml:"content_dir"`
		DefaultSlug   string `yaml:"default_slug"`
		AutoAdvance   string `yaml:"auto_advance"`
		SubmitTimeout string `yaml:"submit_timeout"`
	} `yaml:"quiz"`
	Progress struct {
		Backend    string `yaml:"backend"`
		SQLitePath string `yaml:"sqlite_path"`
		KeyPrefix  string `yaml:"key_prefix"`
	} `yaml:"progress"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies .env and OPQUIZ_* environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("OPQUIZ_PORT", cfg.Server.Port)
	cfg.Redis.Addr = getEnv("OPQUIZ_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("OPQUIZ_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("OPQUIZ_REDIS_DB", cfg.Redis.DB)
	cfg.Postgres.URL = getEnv("OPQUIZ_POSTGRES_URL", cfg.Postgres.URL)
	cfg.Quiz.ContentDir = getEnv("OPQUIZ_CONTENT_DIR", cfg.Quiz.ContentDir)
	cfg.Quiz.DefaultSlug = getEnv("OPQUIZ_DEFAULT_SLUG", cfg.Quiz.DefaultSlug)
	cfg.Progress.Backend = getEnv("OPQUIZ_PROGRESS_BACKEND", cfg.Progress.Backend)
	cfg.Progress.SQLitePath = getEnv("OPQUIZ_SQLITE_PATH", cfg.Progress.SQLitePath)
	cfg.Log.Level = getEnv("OPQUIZ_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("OPQUIZ_LOG_FILE", cfg.Log.File)
}

func applyDefaults(cfg *Config) {
	if cfg.Quiz.ContentDir == "" {
		cfg.Quiz.ContentDir = "content"
	}
	if cfg.Progress.Backend == "" {
		cfg.Progress.Backend = ProgressMemory
		if cfg.Redis.Addr != "" {
			cfg.Progress.Backend = ProgressRedis
		}
	}
	if cfg.Progress.SQLitePath == "" {
		cfg.Progress.SQLitePath = "data/progress.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func (c Config) Validate() error {
	switch c.Progress.Backend {
	case ProgressMemory, ProgressSQLite:
	case ProgressRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("progress backend %q needs redis.addr", c.Progress.Backend)
		}
	default:
		return fmt.Errorf("unknown progress backend %q", c.Progress.Backend)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
