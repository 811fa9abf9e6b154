package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Store backends understood by Load.
const (
	BackendFirebase = "firebase"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the full runtime configuration, read from the environment
// (and a .env file when present).
type Config struct {
	Port         int
	CORSOrigins  []string
	WarningDelay time.Duration
	// Secure marks the session cookie Secure (HTTPS deployments).
	Secure bool

	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
}

// StoreConfig selects and configures the remote JSON store.
type StoreConfig struct {
	Backend      string
	FirebaseURL  string
	FirebaseAuth string
	Timeout      time.Duration
}

// DatabaseConfig keeps the BLUEPRINT_DB_* names the Postgres service always used.
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Schema   string
}

// DSN builds the connection string handed to the gorm postgres driver.
func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		d.Host, d.Username, d.Password, d.Database, d.Port)
	if d.Schema != "" {
		dsn += " search_path=" + d.Schema
	}
	return dsn
}

// RedisConfig configures the session store. An empty Addr keeps sessions in memory.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

// Load reads the configuration and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "https://*,http://*")),
		Store: StoreConfig{
			Backend:      strings.ToLower(getenv("STORE_BACKEND", BackendFirebase)),
			FirebaseURL:  strings.TrimRight(os.Getenv("FIREBASE_URL"), "/"),
			FirebaseAuth: os.Getenv("FIREBASE_AUTH"),
		},
		Database: DatabaseConfig{
			Host:     os.Getenv("BLUEPRINT_DB_HOST"),
			Port:     getenv("BLUEPRINT_DB_PORT", "5432"),
			Username: os.Getenv("BLUEPRINT_DB_USERNAME"),
			Password: os.Getenv("BLUEPRINT_DB_PASSWORD"),
			Database: os.Getenv("BLUEPRINT_DB_DATABASE"),
			Schema:   os.Getenv("BLUEPRINT_DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Log: LogConfig{
			Level: getenv("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
		},
	}

	var err error
	if cfg.Port, err = intEnv("PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.Secure, err = strconv.ParseBool(getenv("COOKIE_SECURE", "false")); err != nil {
		return Config{}, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
	}
	if cfg.Redis.DB, err = intEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.WarningDelay, err = durationEnv("WARNING_CLEAR_MS", 3*time.Second, time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.Store.Timeout, err = durationEnv("STORE_TIMEOUT_MS", 0, time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.Redis.SessionTTL, err = durationEnv("SESSION_TTL_HOURS", 7*24*time.Hour, time.Hour); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case BackendFirebase:
		if c.Store.FirebaseURL == "" {
			return fmt.Errorf("FIREBASE_URL is required for the %s backend", BackendFirebase)
		}
	case BackendPostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("BLUEPRINT_DB_HOST and BLUEPRINT_DB_DATABASE are required for the %s backend", BackendPostgres)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := getenv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func durationEnv(key string, fallback, unit time.Duration) (time.Duration, error) {
	raw := getenv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return time.Duration(v) * unit, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
