package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"ransomguard/internal/api"
	"ransomguard/internal/api/handlers"
	apimiddleware "ransomguard/internal/api/middleware"
	"ransomguard/internal/config"
	"ransomguard/internal/detection/scoring"
	"ransomguard/internal/domain/services"
	"ransomguard/internal/grpc/health"
	"ransomguard/internal/infrastructure/cache"
	"ransomguard/internal/infrastructure/database"
	"ransomguard/internal/infrastructure/database/repository"
	"ransomguard/internal/streaming"
	"ransomguard/pkg/logger"
)

func main() {
	configPath := os.Getenv("RANSOMGUARD_CONFIG")

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
		File:       cfg.Logger.File,
	}
	if cfg.IsProduction() {
		logCfg.Format = "json"
	}
	log := logger.New(logCfg)
	defer log.Close()

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting ransomguard")

	if err := run(cfg, log); err != nil {
		log.Error().Stack().Err(err).Msg("server stopped with error")
		log.Close()
		os.Exit(1)
	}

	log.Info().Msg("shutdown complete")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	store, dbPing, closeDB, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	// Optional Redis: stats cache and shared rate limits
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		} else {
			defer redisCache.Close()
		}
	}

	// Optional NATS for fan-out to other services
	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing without event streaming")
		} else {
			log.Info().Str("url", cfg.NATS.URL).Msg("connected to NATS")
		}
	}

	eventBus := streaming.NewEventBus(natsPublisher, log)
	defer eventBus.Close()
	wsHub := streaming.NewWebSocketHub(eventBus, log)

	// A missing or broken model does not stop the server; scoring is
	// rejected until a reload succeeds.
	engine := scoring.LoadEngine(cfg.Model.ArtifactDir, log)
	if !engine.Available() {
		log.Warn().Str("dir", cfg.Model.ArtifactDir).Msg("starting without a model, scoring disabled")
	}

	opts := []services.ScanServiceOption{
		services.WithEventPublisher(streaming.NewEventBusPublisher(eventBus)),
	}
	var limits apimiddleware.RateChecker
	if redisCache != nil {
		opts = append(opts, services.WithStatsCache(redisCache))
		limits = redisCache
	}
	scanService := services.NewScanService(engine, store, cfg.Model.ArtifactDir, log, opts...)

	checks := map[string]handlers.Check{
		"database": dbPing,
		"model":    scanService.CheckModel,
	}
	if redisCache != nil {
		checks["redis"] = redisCache.Ping
	}

	h := handlers.NewHandlers(handlers.Dependencies{
		Scans:    scanService,
		Checks:   checks,
		WSHub:    wsHub,
		EventBus: eventBus,
		Version:  cfg.App.Version,
		Logger:   log,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr(),
		Handler:      api.NewRouter(*cfg, h, limits, log).Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	probes := make(map[string]health.Probe, len(checks))
	for name, check := range checks {
		probes[name] = health.Probe(check)
	}
	monitor := health.NewMonitor(probes, 15*time.Second, log)
	grpcServer := grpc.NewServer()
	monitor.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", cfg.Server.GRPCAddr())
	if err != nil {
		return fmt.Errorf("failed to create gRPC listener: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		monitor.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", grpcListener.Addr().String()).Msg("starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("gRPC server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
		if natsPublisher != nil {
			natsPublisher.Close()
		}
		return nil
	})

	return g.Wait()
}

// openStore opens the configured scan store and returns it with a health
// probe and a close function.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (services.ScanStore, handlers.Check, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return repository.NewScanRepository(db.Pool()), db.Ping, db.Close, nil

	default:
		db, err := database.NewSQLite(ctx, cfg.Database.SQLitePath, log)
		if err != nil {
			return nil, nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close SQLite database")
			}
		}
		return repository.NewSQLiteScanRepository(db.DB()), db.Ping, closeDB, nil
	}
}
