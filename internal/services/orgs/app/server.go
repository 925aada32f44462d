// Package server composes the orgs service: SQLite store, invite engine,
// and the HTTP surface, with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	platformconfig "github.com/rulebookhq/rulebook/internal/platform/config"
	"github.com/rulebookhq/rulebook/internal/platform/timeouts"
	orgshttp "github.com/rulebookhq/rulebook/internal/services/orgs/api/http/orgs"
	"github.com/rulebookhq/rulebook/internal/services/orgs/domain"
	"github.com/rulebookhq/rulebook/internal/services/orgs/observability/audit"
	"github.com/rulebookhq/rulebook/internal/services/orgs/storage/sqlite"
)

// Config holds orgs server configuration.
type Config struct {
	HTTPAddr     string `env:"RULEBOOK_ORGS_HTTP_ADDR" envDefault:"localhost:8090"`
	DBPath       string `env:"RULEBOOK_ORGS_DB_PATH"   envDefault:"data/orgs.db"`
	PublicOrigin string `env:"RULEBOOK_PUBLIC_ORIGIN"  envDefault:"http://localhost:8090"`
}

// LoadConfigFromEnv reads orgs server configuration from the environment.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := platformconfig.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Server hosts the orgs service.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
}

// New creates a configured orgs server listening on the configured address.
func New(cfg Config) (*Server, error) {
	store, err := openOrgsStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	grants, err := domain.LoadJoinGrantSignerFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load join grant signer: %w", err)
	}

	service := domain.NewService(domain.Config{
		Invites:       store,
		Memberships:   store,
		Redemptions:   store,
		Organizations: store,
		Audit:         audit.NewEmitter(store),
		Grants:        grants,
		PublicOrigin:  cfg.PublicOrigin,
	})

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}

	httpServer := &http.Server{
		Handler:           orgshttp.NewServer(service),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	return &Server{
		listener:   listener,
		httpServer: httpServer,
		store:      store,
	}, nil
}

// Addr returns the listener address for the orgs server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves an orgs server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	orgsServer, err := New(cfg)
	if err != nil {
		return err
	}
	return orgsServer.Serve(ctx)
}

// Serve starts the orgs server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	log.Printf("orgs server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

func openOrgsStore(path string) (*sqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "orgs.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open orgs sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close orgs store: %v", err)
	}
}
