package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PORT", "")
	t.Setenv("WARNING_CLEAR_MS", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.WarningDelay != 3*time.Second {
		t.Fatalf("expected 3s warning delay, got %v", cfg.WarningDelay)
	}
	if cfg.Redis.SessionTTL != 7*24*time.Hour {
		t.Fatalf("unexpected session ttl %v", cfg.Redis.SessionTTL)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"firebase without url", map[string]string{"STORE_BACKEND": "firebase", "FIREBASE_URL": ""}, "FIREBASE_URL"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "s3"}, "unknown STORE_BACKEND"},
		{"bad port", map[string]string{"STORE_BACKEND": "memory", "PORT": "http"}, "invalid PORT"},
		{"negative delay", map[string]string{"STORE_BACKEND": "memory", "WARNING_CLEAR_MS": "-5"}, "WARNING_CLEAR_MS"},
		{"bad cookie flag", map[string]string{"STORE_BACKEND": "memory", "COOKIE_SECURE": "maybe"}, "COOKIE_SECURE"},
		{"postgres without host", map[string]string{"STORE_BACKEND": "postgres", "BLUEPRINT_DB_HOST": ""}, "BLUEPRINT_DB_HOST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDSNIncludesSchema(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", Username: "u", Password: "p", Database: "join", Schema: "board"}
	dsn := d.DSN()
	if !strings.Contains(dsn, "host=db") || !strings.HasSuffix(dsn, "search_path=board") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}
