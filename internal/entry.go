// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/onemd/internal/api"
	"github.com/starford/onemd/internal/autosave"
	"github.com/starford/onemd/internal/mcpserver"
	"github.com/starford/onemd/internal/noteservice"
	"github.com/starford/onemd/internal/sse"
	"github.com/starford/onemd/internal/storage"
	"github.com/starford/onemd/internal/watch"
)

func newApplication(opts []Option, defaultLog io.Writer) (*application, *slog.Logger, error) {
	app := &application{version: "dev", logOutput: defaultLog}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// newService builds the store and service and ensures the root exists.
func newService(cfg *Config, logger *slog.Logger) (*noteservice.Service, string, error) {
	store := storage.NewStore(cfg.Storage.Resolver(),
		storage.WithAtomicWrites(cfg.Storage.AtomicWrites),
		storage.WithDefaultNote(cfg.Storage.DefaultNote),
	)
	root, err := store.Root()
	if err != nil {
		return nil, "", fmt.Errorf("init storage: %w", err)
	}
	svc := noteservice.NewService(store,
		noteservice.WithConfinement(cfg.Storage.ConfinePaths),
		noteservice.WithLogger(logger),
	)
	return svc, root, nil
}

// Run serves the local HTTP bridge until ctx is cancelled or a signal
// arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config

	svc, root, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root", root),
		slog.Bool("atomic_writes", cfg.Storage.AtomicWrites),
		slog.Duration("autosave_delay", cfg.Autosave.Delay),
		slog.String("log_level", cfg.App.LogLevel.String()))

	drafts := autosave.New(cfg.Autosave.Delay, api.SaveDraftFunc(svc), autosave.WithLogger(logger))
	broker := sse.NewBroker(cfg.Watch.TreeThrottle)

	apiRouter := api.NewRouter(svc, drafts, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.Root(context.Background()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			// The bridge keeps working without live events.
			if err := watch.Watch(gCtx, root, cfg.Watch.Ignore, logger, broker.PublishChange); err != nil {
				logger.Warn("watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams only end when the broker closes them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		if err := drafts.Close(shutdownCtx); err != nil {
			logger.Error("Saving pending drafts failed", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	svc, root, err := newService(app.config, logger)
	if err != nil {
		return err
	}
	logger.Info("MCP server starting", slog.String("root", root), slog.String("version", app.version))
	return mcpserver.New(svc, app.version).ServeStdio()
}

// Seed writes the sample notebook and exits.
func Seed(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	svc, root, err := newService(app.config, logger)
	if err != nil {
		return err
	}
	if err := svc.EnsureDemoData(ctx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	logger.Info("Sample data ready", slog.String("root", root))
	return nil
}
