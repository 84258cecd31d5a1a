package config_test

import (
	"testing"
	"time"

	"github.com/iho/booklend/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.StoreDriver != config.StoreDriverPostgres {
		t.Fatalf("expected postgres store by default, got %s", cfg.StoreDriver)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.JWTExpiration != 5*time.Hour {
		t.Fatalf("expected 5h token lifetime, got %s", cfg.JWTExpiration)
	}

	if !cfg.AuthEnabled {
		t.Fatalf("expected auth to be enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("BOOK_CACHE_TTL", "1m")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.StoreDriver != config.StoreDriverMemory {
		t.Fatalf("expected memory store, got %s", cfg.StoreDriver)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" || cfg.RedisEnabled {
		t.Fatalf("expected custom redis settings, got url=%s enabled=%v", cfg.RedisURL, cfg.RedisEnabled)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.JWTSecret != "top-secret" || !cfg.AuthEnabled {
		t.Fatalf("expected auth settings to be set, got secret=%s enabled=%v", cfg.JWTSecret, cfg.AuthEnabled)
	}

	if cfg.RateLimitRPS != 2.5 || cfg.BookCacheTTL != time.Minute {
		t.Fatalf("unexpected overrides: rps=%v ttl=%s", cfg.RateLimitRPS, cfg.BookCacheTTL)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown store driver",
			env:  map[string]string{"STORE_DRIVER": "sqlite", "JWT_SECRET": "s"},
		},
		{
			name: "auth without secret",
			env:  map[string]string{"AUTH_ENABLED": "true", "JWT_SECRET": ""},
		},
		{
			name: "bootstrap username without password",
			env: map[string]string{
				"JWT_SECRET":               "s",
				"BOOTSTRAP_ADMIN_USERNAME": "root",
				"BOOTSTRAP_ADMIN_PASSWORD": "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadTrustedMode(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AuthEnabled {
		t.Fatalf("expected auth disabled")
	}
}
