package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		prev, ok := os.LookupEnv(key)
		os.Unsetenv(key)
		if ok {
			t.Cleanup(func() { os.Setenv(key, prev) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "ENV", "PORT", "BINDING_TTL", "JWT_SECRET", "DATABASE_URL", "REDIS_URL")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected development env, got %q", cfg.Env)
	}
	if cfg.BindingTTL != 336*time.Hour {
		t.Fatalf("expected 336h binding ttl, got %s", cfg.BindingTTL)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if problems := cfg.Validate(); len(problems) != 0 {
		t.Fatalf("development defaults should validate, got %v", problems)
	}
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	unsetenv(t, "JWT_SECRET", "DATABASE_URL", "REDIS_URL", "BINDING_TTL")
	t.Setenv("ENV", "production")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.UsesDefaultSecret() {
		t.Fatal("expected default secret to be detected")
	}
	problems := cfg.Validate()
	if len(problems) != 1 || problems[0] != "JWT_SECRET must be set in production" {
		t.Fatalf("unexpected problems: %v", problems)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BINDING_TTL", "1h")
	t.Setenv("COOKIE_SECURE", "true")
	unsetenv(t, "DATABASE_URL", "REDIS_URL")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BindingTTL != time.Hour || !cfg.CookieSecure {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if problems := cfg.Validate(); len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
}
