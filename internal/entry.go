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
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notas/internal/api"
	"github.com/starford/notas/internal/mcpserver"
	"github.com/starford/notas/internal/sse"
	"github.com/starford/notas/internal/storage"
)

// Run serves the notes API until a shutdown signal or ctx cancellation.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend", cfg.Backend.Kind),
		slog.String("driver", cfg.Backend.Local.Driver),
		slog.String("id_scheme", cfg.Server.IDScheme),
		slog.String("log_level", cfg.App.LogLevel.String()))

	wired, err := buildBackend(cfg, logger, noteFactory(cfg.Server.IDScheme))
	if err != nil {
		return err
	}
	defer wired.Close()

	broker := sse.NewBroker(cfg.Server.EventsThrottle, sse.WithLogger(logger))
	defer broker.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		if _, err := wired.backend.List(req.Context()); err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_, _ = rw.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", api.NewRouter(wired.backend, broker, logger, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
	}).Handler(r)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	if wired.fs != nil && cfg.Backend.Local.Watch {
		g.Go(func() error {
			return storage.WatchKey(watchCtx, wired.fs, wired.key, logger, func() {
				broker.Publish(sse.Event{Type: sse.TypeNotesChanged, Data: sse.ChangedData{}})
			})
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
		stopWatch()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
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

// RunMCP serves the notes store as MCP tools on stdin/stdout until the
// client disconnects. Logs go to the configured output, which must not be
// stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger
	slog.SetDefault(logger)

	wired, err := buildBackend(cfg, logger, noteFactory(IDSchemeUID))
	if err != nil {
		return err
	}
	defer wired.Close()

	store := newStore(cfg, wired, logger)
	if err := store.LoadAll(ctx); err != nil {
		logger.Warn("initial load failed", slog.String("error", err.Error()))
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if wired.fs != nil && cfg.Backend.Local.Watch {
		go func() {
			err := storage.WatchKey(watchCtx, wired.fs, wired.key, logger, func() {
				if err := store.LoadAll(watchCtx); err != nil {
					logger.Warn("reload after external change failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("MCP server starting", slog.String("version", app.version), slog.String("backend", cfg.Backend.Kind))
	return mcpserver.New(store, app.version, logger).ServeStdio()
}
