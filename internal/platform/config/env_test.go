package config

import (
	"testing"
	"time"
)

type testEnv struct {
	Addr    string        `env:"RULEBOOK_TEST_ADDR"    envDefault:"localhost:9999"`
	Timeout time.Duration `env:"RULEBOOK_TEST_TIMEOUT" envDefault:"5s"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg testEnv
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "localhost:9999" {
		t.Fatalf("addr = %q, want localhost:9999", cfg.Addr)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v, want 5s", cfg.Timeout)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("RULEBOOK_TEST_ADDR", "0.0.0.0:8080")
	t.Setenv("RULEBOOK_TEST_TIMEOUT", "250ms")

	var cfg testEnv
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "0.0.0.0:8080" {
		t.Fatalf("addr = %q, want 0.0.0.0:8080", cfg.Addr)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("timeout = %v, want 250ms", cfg.Timeout)
	}
}
