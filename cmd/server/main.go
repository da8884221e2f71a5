package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fastwise/tutr/internal/api"
	"github.com/fastwise/tutr/internal/content"
	"github.com/fastwise/tutr/internal/graph"
	"github.com/fastwise/tutr/internal/platform/cache"
	"github.com/fastwise/tutr/internal/platform/config"
	"github.com/fastwise/tutr/internal/platform/database"
	"github.com/fastwise/tutr/internal/progress"
	"github.com/fastwise/tutr/internal/recommend"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Build the concept graph from the question banks before serving.
	builder := graph.NewBuilder(graph.BuilderConfig{
		GeneralConceptFallback: cfg.Data.GeneralConceptFallback,
	})
	loadGraph := func() (*graph.Graph, error) {
		records, stats, err := content.Load(cfg.Data.Path)
		if err != nil {
			return nil, fmt.Errorf("load question banks: %w", err)
		}
		slog.Info("question banks loaded", "files", stats.Files, "records", stats.Records)
		return builder.Build(records)
	}

	g, err := loadGraph()
	if err != nil {
		return fmt.Errorf("build concept graph: %w", err)
	}
	graphRef := graph.NewRef(g)
	slog.Info("concept graph built", "stats", g.Stats())

	hub := api.NewHub()
	var store progress.Store
	events := progress.EventLogger(hub)

	switch {
	case cfg.Database.URL != "":
		db, err := database.New(ctx, database.Config{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		if err := database.EnsureSchema(ctx, db.Pool); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		pgStore, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			return err
		}
		store = pgStore
		events = progress.TeeEventLogger(hub, progress.NewPostgresEventLogger(db.Pool))
		slog.Info("progress store ready", "backend", "postgres")

	case cfg.Cache.URL != "":
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fmt.Errorf("connect cache: %w", err)
		}
		defer c.Close()

		store, err = progress.NewRedisStore(c.Client)
		if err != nil {
			return err
		}
		slog.Info("progress store ready", "backend", "redis")

	default:
		store = progress.NewMemoryStore()
		slog.Warn("no database or cache configured, progress is in-memory only")
	}

	tracker := progress.NewTracker(progress.TrackerConfig{
		Store:  store,
		Events: events,
	})
	engine := recommend.NewEngine(recommend.EngineConfig{
		MaxLimit: cfg.Recommend.MaxLimit,
	})
	server := api.NewServer(api.ServerConfig{
		Graph:   graphRef,
		Tracker: tracker,
		Engine:  engine,
		Hub:     hub,
		Reload:  loadGraph,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
