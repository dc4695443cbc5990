// Command gateway runs the NWS alert gateway: a polling acquisition
// pipeline for active weather alerts plus the HTTP API that serves the
// resolved alert+geometry bundles.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/nws-alert-gateway/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/nws-alert-gateway/internal/adapter/kafka"
	"github.com/couchcryptid/nws-alert-gateway/internal/adapter/nws"
	"github.com/couchcryptid/nws-alert-gateway/internal/cache"
	"github.com/couchcryptid/nws-alert-gateway/internal/config"
	"github.com/couchcryptid/nws-alert-gateway/internal/observability"
	"github.com/couchcryptid/nws-alert-gateway/internal/pipeline"
	"github.com/couchcryptid/nws-alert-gateway/internal/poller"
	"github.com/couchcryptid/nws-alert-gateway/internal/resolver"
	"github.com/couchcryptid/nws-alert-gateway/internal/snapshot"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "gateway",
		Short:         "Serve NWS active alerts with resolved zone geometry",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "environment file to load before reading config")
	return cmd
}

func run(ctx context.Context, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			slog.Error("failed to load env file", "path", envFile, "error", err)
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Zone geometry cache: Redis when configured, local file otherwise.
	var store cache.Store
	var redisStore *cache.RedisStore
	if cfg.RedisAddr != "" {
		redisStore = cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, logger)
		store = redisStore
		logger.Info("zone geometry cache on redis", "addr", cfg.RedisAddr)
	} else {
		path := filepath.Join(cfg.DataDir, "zone-geometries.json")
		fileStore := cache.NewFileStore(path, logger)
		if hydrated, err := fileStore.LoadAll(ctx); err != nil {
			logger.Warn("zone geometry cache hydration failed", "error", err)
		} else {
			logger.Info("zone geometry cache on file", "path", path, "entries", len(hydrated))
		}
		store = fileStore
	}

	client := nws.NewClient(cfg, logger, metrics)
	zones := resolver.New(client, store, cfg, logger, metrics)
	snaps := snapshot.NewStore(filepath.Join(cfg.DataDir, "snapshot.json"), logger)

	// Alert publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.AlertPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaAlertsTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	refresher := pipeline.New(client, zones, snaps, publisher, logger, metrics)

	p := poller.New(refresher, cfg.PollInterval, clockwork.NewRealClock(), logger, metrics)
	p.Start(ctx)

	srv := httpadapter.NewServer(cfg.HTTPAddr, refresher, refresher, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	p.Stop()
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
