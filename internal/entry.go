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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/chronos/internal/api"
	"github.com/starford/chronos/internal/index"
	"github.com/starford/chronos/internal/mcpserver"
	"github.com/starford/chronos/internal/models"
	"github.com/starford/chronos/internal/service"
	"github.com/starford/chronos/internal/sse"
	"github.com/starford/chronos/internal/vault"
)

// Session is an opened vault: storage, synced index and service.
type Session struct {
	Config  *Config
	Logger  *slog.Logger
	Store   *vault.FS
	DB      *index.DB
	Service *service.Service
}

// Close releases the index database.
func (s *Session) Close() error {
	return s.DB.Close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Open loads the vault, brings the index up to date and builds the service.
// extra options are appended to the ones derived from the configuration.
func Open(opts []Option, extra ...service.Option) (*Session, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return app.open(extra...)
}

func (app *application) open(extra ...service.Option) (*Session, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("parent_field", cfg.Parents.Field),
		slog.Any("parent_tags", cfg.Parents.Tags),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := vault.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svcOpts := append([]service.Option{
		service.WithLogger(logger),
		service.WithParentField(cfg.Parents.Field),
		service.WithParentTags(cfg.Parents.Tags...),
	}, extra...)

	return &Session{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		DB:      db,
		Service: service.NewService(store, db, svcOpts...),
	}, nil
}

// Run starts the HTTP server and the vault watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(app.config.Events.Throttle)
	defer broker.Close()

	sess, err := app.open(service.WithOnLink(func(parent, child models.Note) {
		broker.ParentLinked(parent.Path, child.Path)
	}))
	if err != nil {
		return err
	}
	defer sess.Close()

	cfg, logger := sess.Config, sess.Logger

	apiRouter := api.NewRouter(sess.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return index.Watch(gCtx, sess.DB, sess.Store, cfg.Vault.Path, logger, func(ev index.NoteEvent) {
			broker.NoteChanged(ev.Kind, ev.Path, ev.ModTime)
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout while the watcher keeps the
// index fresh. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	sess, err := Open(append(opts, WithLogOutput(os.Stderr)))
	if err != nil {
		return err
	}
	defer sess.Close()

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)

	g.Go(func() error {
		return index.Watch(watchCtx, sess.DB, sess.Store, sess.Config.Vault.Path, sess.Logger, nil)
	})

	g.Go(func() error {
		defer stopWatch()
		sess.Logger.Info("MCP server starting on stdio")
		return mcpserver.New(sess.Service, sess.Store).ServeStdio()
	})

	return g.Wait()
}
