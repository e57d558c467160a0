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

	"github.com/starford/sever/internal/catalog"
	"github.com/starford/sever/internal/mcpserver"
	"github.com/starford/sever/internal/pagecache"
	"github.com/starford/sever/internal/render"
	"github.com/starford/sever/internal/sse"
	"github.com/starford/sever/internal/storage"
	"github.com/starford/sever/internal/watch"
	"github.com/starford/sever/internal/web"
	"github.com/starford/sever/internal/wikiservice"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	store   storage.Provider
	catalog *catalog.Cache
	svc     *wikiservice.Service
	closers []io.Closer
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			rt.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func setup(opts []Option, defaultOutput io.Writer) (*application, *runtime, error) {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if app.logOutput == nil {
		app.logOutput = defaultOutput
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("wiki_root", cfg.Wiki.Root),
		slog.String("catalog_path", cfg.Wiki.CatalogPath),
		slog.Bool("render_cache", cfg.RenderCache.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Wiki.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, store: store}
	rt.catalog = catalog.NewCache(cfg.Wiki.CatalogPath, catalog.NewBuilder(store.Root(), logger), logger)

	var cache wikiservice.PageCache
	if cfg.RenderCache.Enabled {
		db, err := pagecache.Open(cfg.RenderCache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init render cache: %w", err)
		}
		rt.closers = append(rt.closers, db)
		cache = db
	}

	renderer := render.New(render.Options{
		HardWraps: cfg.Render.HardWraps,
		SafeMode:  cfg.Render.SafeMode,
		Math:      cfg.Render.Math,
	})
	rt.svc = wikiservice.NewService(rt.catalog, store, renderer, cache, logger)

	return app, rt, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	_, rt, err := setup(opts, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger := rt.cfg, rt.logger

	// Warm the catalog so a corrupt artifact fails startup.
	if _, err := rt.svc.Catalog(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var broker *sse.Broker
	var sseHandler http.Handler
	if cfg.Wiki.Watch {
		broker = sse.NewBroker(2 * time.Second)
		defer broker.Close()
		sseHandler = broker
	}

	// Build chi router.
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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", web.NewRouter(rt.svc, rt.store, sseHandler))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	if broker != nil {
		g.Go(func() error {
			err := watch.Watch(gCtx, rt.store.Root(), watch.DefaultDebounce, logger, func(kind, path string) {
				if kind != watch.Created {
					rt.svc.Forget(path)
				}
				broker.PublishPageEvent(kind, path)
			})
			if err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		// Event streams never finish on their own.
		if broker != nil {
			broker.Close()
		}

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

// errShutdown cancels the group once the server has been shut down, which
// also stops the watcher.
var errShutdown = errors.New("shutdown")

// PrintCatalog writes the catalog outline for locale to w. With rebuild set
// the cached artifact is removed first.
func PrintCatalog(ctx context.Context, w io.Writer, rebuild bool, locale string, opts ...Option) error {
	_, rt, err := setup(opts, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rebuild {
		if err := rt.catalog.Invalidate(); err != nil {
			return fmt.Errorf("invalidate catalog: %w", err)
		}
	}

	root, err := rt.svc.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	_, err = io.WriteString(w, catalog.Outline(root, locale))
	return err
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, rt, err := setup(opts, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}
