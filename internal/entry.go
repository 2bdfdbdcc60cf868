// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/halvard/vaultsync/internal/api"
	"github.com/halvard/vaultsync/internal/index"
	"github.com/halvard/vaultsync/internal/mcpserver"
	"github.com/halvard/vaultsync/internal/remote"
	"github.com/halvard/vaultsync/internal/routing"
	"github.com/halvard/vaultsync/internal/storage"
	"github.com/halvard/vaultsync/internal/sync"
)

// runtime bundles the wired components every mode needs.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  storage.Provider
	db     *index.DB
	syncer *sync.Syncer
	svc    *api.Service
}

func (rt *runtime) close() {
	rt.db.Close()
}

// bootstrap wires storage, the state index, the remote client, and the sync
// service from configuration. quiet suppresses stdout logging; the MCP mode
// needs stdout for its transport.
func bootstrap(cfg *Config, quiet bool) (*runtime, error) {
	out := os.Stdout
	if quiet {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	folders := cfg.Vault.Folders()
	for _, f := range []string{folders.Canonical, folders.Bookmarks, folders.Authors} {
		if f == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Join(cfg.Vault.Path, f), 0o755); err != nil {
			return nil, fmt.Errorf("create vault folder %s: %w", f, err)
		}
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init state index: %w", err)
	}

	// Persisted routing state wins over the config file: an affirm from a
	// previous run must survive restarts.
	rc := db.LoadContext(cfg.Remote.RoutingContext())

	var auth remote.Authenticator = remote.NoAuth{}
	if cfg.Remote.Token != "" {
		auth = remote.BearerAuth{Token: cfg.Remote.Token}
	}

	// The client reads routing state through the service, which is built
	// after the client. The closure resolves at request time, so the late
	// assignment is safe.
	var svc *api.Service
	client, err := remote.New(cfg.Remote.BaseURL, auth, func() routing.Context { return svc.Routing() })
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init remote client: %w", err)
	}

	syncer := sync.New(store, db, client, cfg.Sync.Options(cfg.Vault.Strategy, folders), logger)
	svc = api.NewService(syncer, db, rc)

	logger.Info("configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("remote", cfg.Remote.BaseURL),
		slog.String("source_id", rc.SourceID),
		slog.Int("profile_index", rc.ProfileIndex),
		slog.String("strategy", cfg.Vault.Strategy))

	return &runtime{cfg: cfg, logger: logger, store: store, db: db, syncer: syncer, svc: svc}, nil
}

// Run starts the long-running server: control API, optional vault watcher,
// and graceful shutdown on SIGINT/SIGTERM.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	rt, err := bootstrap(cfg, false)
	if err != nil {
		return err
	}
	defer rt.close()
	logger := rt.logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", api.HealthHandler().ServeHTTP)
	r.Get("/health/ready", api.HealthHandler().ServeHTTP)

	r.Mount("/api", api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Sync.Watch {
		g.Go(func() error {
			if err := rt.syncer.Watch(gCtx, cfg.Vault.Path); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}

// RunPull executes one remote-to-local pass and exits.
func RunPull(ctx context.Context, cfg *Config, replaceFirst bool) error {
	rt, err := bootstrap(cfg, false)
	if err != nil {
		return err
	}
	defer rt.close()

	sum, err := rt.svc.Pull(ctx, remote.ListQuery{}, replaceFirst)
	if err != nil {
		return err
	}
	rt.logger.Info("pull finished",
		slog.Int("pages", sum.Pages),
		slog.Int("written", sum.Written),
		slog.Int("merged", sum.Merged),
		slog.Int("failed", sum.Failed),
		slog.String("stop", string(sum.Stop)))
	return nil
}

// RunPush executes one local-to-remote pass and exits.
func RunPush(ctx context.Context, cfg *Config) error {
	rt, err := bootstrap(cfg, false)
	if err != nil {
		return err
	}
	defer rt.close()

	sum, err := rt.svc.Push(ctx)
	if err != nil {
		return err
	}
	rt.logger.Info("push finished",
		slog.Int("pushed", sum.Pushed),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed),
		slog.Int("duplicate_groups", sum.DuplicateGroups))
	return nil
}

// RunAffirm re-anchors routing to the given profile index and exits.
func RunAffirm(_ context.Context, cfg *Config, profileIndex int) error {
	rt, err := bootstrap(cfg, false)
	if err != nil {
		return err
	}
	defer rt.close()

	rc, err := rt.svc.Affirm(profileIndex)
	if err != nil {
		return err
	}
	rt.logger.Info("routing affirmed",
		slog.String("source_id", rc.SourceID),
		slog.Int("profile_index", rc.ProfileIndex))
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr so stdout
// stays clean for the protocol.
func RunMCP(_ context.Context, cfg *Config) error {
	rt, err := bootstrap(cfg, true)
	if err != nil {
		return err
	}
	defer rt.close()

	srv := mcpserver.New(rt.svc, rt.store)
	return srv.ServeStdio()
}
