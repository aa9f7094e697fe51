package config

import (
	"os"
	"testing"
)

func TestLoadWithDefaults_Succeeds(t *testing.T) {
	// Ensure envs are clean to use defaults
	os.Unsetenv("DB_PATH")
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("MATCH_RADIUS_METERS")
	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Database.Path == "" || cfg.Auth.JWTSecret == "" {
		t.Fatalf("unexpected empty defaults: %+v", cfg)
	}
	if cfg.Matching.RadiusMeters != 7000 || cfg.Matching.MaxCandidates != 10 {
		t.Fatalf("unexpected matching defaults: %+v", cfg.Matching)
	}
	if cfg.Policy.CancelLimit != 3 || cfg.Policy.BuyerCutoffMinutes != 30 {
		t.Fatalf("unexpected policy defaults: %+v", cfg.Policy)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	// Clear JWT_SECRET ensures error
	os.Unsetenv("JWT_SECRET")
	t.Setenv("DB_PATH", "test.db")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is not set")
	}
	// When set, it should succeed
	t.Setenv("JWT_SECRET", "x")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with secret set: %v", err)
	}
}

func TestLoad_InvalidInt(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("MATCH_MAX_ATTEMPTS", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid integer env")
	}
}
