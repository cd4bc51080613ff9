package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/cart-allocation/internal/adapter/handler"
	"github.com/rl1809/cart-allocation/internal/adapter/storage"
	"github.com/rl1809/cart-allocation/internal/config"
	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/core/service"
	"github.com/rl1809/cart-allocation/internal/logging"
	"github.com/rl1809/cart-allocation/internal/port"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	envFile := flag.String("env-file", ".env", "dotenv file to load before reading config")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		slog.Error("failed to load env file", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.App.LogLevel, cfg.App.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, dialect, err := storage.Open(ctx, storage.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Migrate:         cfg.Database.Migrate,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("connected to database", "driver", dialect.Name)

	store := storage.NewSQLAdapter(db, dialect)

	// Events go to Redis when configured
	var events port.EventPublisher = port.NopPublisher{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		events = storage.NewRedisAdapter(rdb, cfg.Redis.Stream, cfg.Redis.MaxLen)
		log.Info("publishing events to redis", "addr", cfg.Redis.Addr, "stream", cfg.Redis.Stream)
	}

	// Initialize services
	var policy service.ShipmentPolicy = service.DefaultPolicy{}
	if len(cfg.Allocation.CarrierIDs) > 0 {
		policy = service.CarrierPolicy{CarrierIDs: cfg.Allocation.CarrierIDs}
	}
	opts := []service.AllocatorOption{
		service.WithPolicy(policy),
		service.WithMaxRetries(cfg.Allocation.MaxRetries),
		service.WithRetryDelay(cfg.Allocation.RetryDelay),
		service.WithEvents(events),
		service.WithLogger(log),
	}
	if len(cfg.Allocation.States) > 0 {
		opts = append(opts, service.WithClaimStates(toStates(cfg.Allocation.States)))
	}
	if cfg.Allocation.WarehouseID > 0 {
		opts = append(opts, service.WithWarehouse(cfg.Allocation.WarehouseID))
	}
	services := handler.Services{
		Allocator: service.NewAllocator(store, store, store, service.NewAggregator(store, store), opts...),
		Recorder: service.NewRecorder(service.RecorderDeps{
			Store:     store,
			Lines:     store,
			Queue:     store,
			Pickers:   store,
			Locations: store,
			Products:  store,
			Events:    events,
			Log:       log,
		}),
		Feedback: service.NewFeedback(store),
		Carts:    service.NewCartService(store, store),
	}
	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterCartAllocationServer(grpcServer, handler.NewGRPCHandler(services, log))

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return err
	}

	go func() {
		log.Info("gRPC server listening", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", "err", err)
		}
	}()

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(services, log).Register(mux)
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: handler.LogRequests(log, mux),
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", "err", err)
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	return nil
}

func toStates(states []string) []domain.ShipmentState {
	out := make([]domain.ShipmentState, 0, len(states))
	for _, s := range states {
		out = append(out, domain.ShipmentState(s))
	}
	return out
}
