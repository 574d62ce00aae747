package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/record-catalog/internal/adapter/handler"
	"github.com/rl1809/record-catalog/internal/adapter/musicbrainz"
	"github.com/rl1809/record-catalog/internal/adapter/storage"
	"github.com/rl1809/record-catalog/internal/config"
	"github.com/rl1809/record-catalog/internal/core/service"
	"github.com/rl1809/record-catalog/internal/obs"
	"github.com/rl1809/record-catalog/internal/port"
	"github.com/rl1809/record-catalog/internal/tracing"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "catalog-server",
	Short:        "Record catalog HTTP and gRPC server",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers (default)",
	RunE:  runServe,
}

var initSchemaCmd = &cobra.Command{
	Use:   "init-schema",
	Short: "Create the records and orders tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		return storage.EnsureSchema(cmd.Context(), db, storeDriver(cfg))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml)")
	rootCmd.AddCommand(serveCmd, initSchemaCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := obs.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	// Initialize tracing
	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		ServiceName:  cfg.Tracing.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		// flush spans even when startup fails below
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("tracing shutdown", "error", err)
		}
	}()

	// Initialize store
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to store", "driver", cfg.Store.Driver)
	if cfg.Store.InitSchema {
		if err := storage.EnsureSchema(ctx, db, storeDriver(cfg)); err != nil {
			return err
		}
	}

	// Initialize cache
	var (
		cache       port.CacheRepository
		idempotency port.IdempotencyRepository
	)
	switch cfg.Cache.Driver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
		redisAdapter := storage.NewRedisAdapter(rdb)
		cache, idempotency = redisAdapter, redisAdapter
	default:
		memory := storage.NewMemoryCache(cfg.Cache.CleanupInterval)
		cache, idempotency = memory, memory
	}

	// Initialize services
	store := storage.NewSQLAdapter(db)
	tracks := musicbrainz.NewClient(musicbrainz.Config{
		BaseURL:   cfg.MusicBrainz.BaseURL,
		UserAgent: cfg.MusicBrainz.UserAgent,
		Timeout:   cfg.MusicBrainz.Timeout,
	})
	opts := []service.Option{service.WithLogger(logger), service.WithTracer(tp.Tracer())}
	catalog := service.NewCatalogService(store, cache, tracks, cfg.Cache.TTL, opts...)
	orders := service.NewOrderService(catalog, store, idempotency, opts...)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	healthServer := handler.NewGRPCHandler(catalog, orders, logger).Register(grpcServer)
	defer grpcServer.Stop()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	// Initialize HTTP server
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.NewHTTPHandler(catalog, orders, logger).Routes(),
	}
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down...")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", "error", err)
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	return nil
}

func storeDriver(cfg config.Config) string {
	if cfg.Store.Driver == "sqlite" {
		return storage.DriverSQLite
	}
	return storage.DriverMySQL
}

func openStore(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	return storage.OpenDB(ctx, storage.DBOptions{
		Driver:          storeDriver(cfg),
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
}
