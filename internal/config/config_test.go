package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CACHE_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.CacheTTLSeconds != 300 {
		t.Fatalf("expected default cache ttl 300, got %d", cfg.CacheTTLSeconds)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadRejectsBadCacheTTL(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.CacheTTLSeconds != 300 {
		t.Fatalf("expected fallback cache ttl 300, got %d", cfg.CacheTTLSeconds)
	}
}
