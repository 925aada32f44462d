// Package orgs wires command-line configuration for the orgs server.
package orgs

import (
	"context"
	"flag"
	"strings"

	server "github.com/rulebookhq/rulebook/internal/services/orgs/app"
)

// Config holds orgs command configuration.
type Config struct {
	HTTPAddr     string
	DBPath       string
	PublicOrigin string
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses flags into a Config. Flags override environment values.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		HTTPAddr:     envOrDefault(lookup, "RULEBOOK_ORGS_HTTP_ADDR", "localhost:8090"),
		DBPath:       envOrDefault(lookup, "RULEBOOK_ORGS_DB_PATH", "data/orgs.db"),
		PublicOrigin: envOrDefault(lookup, "RULEBOOK_PUBLIC_ORIGIN", "http://localhost:8090"),
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The orgs HTTP server address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The orgs SQLite database path")
	fs.StringVar(&cfg.PublicOrigin, "origin", cfg.PublicOrigin, "The public origin for redemption URLs")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the orgs server.
func Run(ctx context.Context, cfg Config) error {
	return server.Run(ctx, server.Config{
		HTTPAddr:     cfg.HTTPAddr,
		DBPath:       cfg.DBPath,
		PublicOrigin: cfg.PublicOrigin,
	})
}

func envOrDefault(lookup EnvLookup, key, fallback string) string {
	if lookup == nil {
		return fallback
	}
	value, ok := lookup(key)
	if !ok {
		return fallback
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
