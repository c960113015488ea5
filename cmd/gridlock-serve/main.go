// Command gridlock-serve runs the solve service: an HTTP API, an optional
// puzzle drop directory watcher, and optional Postgres solve history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridlock-solve/gridlock/pkg/cache"
	"github.com/gridlock-solve/gridlock/pkg/common/config"
	"github.com/gridlock-solve/gridlock/pkg/common/logging"
	"github.com/gridlock-solve/gridlock/pkg/gridlock"
	"github.com/gridlock-solve/gridlock/pkg/server"
	"github.com/gridlock-solve/gridlock/pkg/store/postgres"
	"github.com/gridlock-solve/gridlock/pkg/watch"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		listen     = flag.String("listen", "", "Listen address (overrides config)")
		watchDir   = flag.String("watch", "", "Puzzle drop directory (overrides config)")
		workers    = flag.Int("workers", 0, "Concurrent search workers (overrides config)")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *watchDir != "" {
		cfg.Watch.Directory = *watchDir
	}
	if *workers > 0 {
		cfg.Solver.Workers = *workers
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	log := logger.WithComponent("serve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var solutionCache *cache.SolutionCache
	if cfg.Cache.Enabled {
		solutionCache = cache.NewSolutionCache(cfg.Cache.Capacity)
	}

	engine := gridlock.NewEngine(
		gridlock.WithWorkers(cfg.Solver.Workers),
		gridlock.WithCache(solutionCache),
		gridlock.WithLogger(logger),
	)

	var history server.History
	if cfg.Database.Enabled {
		db, err := postgres.Open(ctx, postgres.Config{
			URL:            cfg.Database.URL,
			MaxConnections: cfg.Database.MaxConnections,
			MigrationsPath: cfg.Database.MigrationsPath,
		})
		if err != nil {
			log.Error("database connection failed", logging.Fields{"error": err.Error()})
			os.Exit(1)
		}
		defer db.Close()
		if err := db.MigrateUp(); err != nil {
			log.Error("database migration failed", logging.Fields{"error": err.Error()})
			os.Exit(1)
		}
		history = db
		log.Info("solve history enabled")
	}

	srv := server.New(cfg.Server.Listen, engine, solutionCache, history, logger)

	errCh := make(chan error, 2)
	go func() { errCh <- srv.ListenAndServe() }()

	if cfg.Watch.Directory != "" {
		w, err := watch.New(cfg.Watch.Directory, cfg.Watch.Extension, cfg.Watch.Debounce(), engine, logger)
		if err != nil {
			log.Error("watcher setup failed", logging.Fields{"error": err.Error()})
			os.Exit(1)
		}
		go func() {
			if err := w.Run(ctx); err != nil && err != context.Canceled {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", logging.Fields{"error": err.Error()})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", logging.Fields{"error": err.Error()})
	}
}

func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	if cfg.Logging.File != "" {
		w, err := logging.FileOutput(cfg.Logging.File)
		if err != nil {
			return nil, err
		}
		return logging.New(w, level, format), nil
	}
	return logging.New(os.Stderr, level, format), nil
}
