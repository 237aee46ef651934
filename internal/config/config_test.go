package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnBadNumericValues(t *testing.T) {
	t.Setenv("CATALOG_PAGE_SIZE", "zero")
	t.Setenv("CATALOG_TTL_SECONDS", "-4")
	t.Setenv("SESSION_TTL_MINUTES", "")

	cfg := Load()
	if cfg.CatalogPageSize != 10 {
		t.Fatalf("expected default page size 10, got %d", cfg.CatalogPageSize)
	}
	if cfg.CatalogTTLSeconds != 15 {
		t.Fatalf("expected default catalog TTL 15, got %d", cfg.CatalogTTLSeconds)
	}
	if cfg.SessionTTLMinutes != 30 {
		t.Fatalf("expected default session TTL 30, got %d", cfg.SessionTTLMinutes)
	}
}

func TestAddressUsesPort(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg := Load()
	if cfg.Address() != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.Address())
	}
}
