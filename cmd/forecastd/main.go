package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // feed timestamps are Melbourne-local; embed zone data

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/cfa-fire-forecast/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/cfa-fire-forecast/internal/adapter/kafka"
	"github.com/couchcryptid/cfa-fire-forecast/internal/adapter/redisstate"
	"github.com/couchcryptid/cfa-fire-forecast/internal/config"
	"github.com/couchcryptid/cfa-fire-forecast/internal/feed"
	"github.com/couchcryptid/cfa-fire-forecast/internal/observability"
	"github.com/couchcryptid/cfa-fire-forecast/internal/pipeline"
	"github.com/couchcryptid/cfa-fire-forecast/internal/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store := state.NewStore()
	publishers := []pipeline.Publisher{store}

	// Optional sinks, feature-flagged via REDIS_ADDR / KAFKA_ENABLED.
	var redisPub *redisstate.Publisher
	if cfg.RedisEnabled() {
		redisPub = redisstate.NewPublisher(cfg.RedisAddr, cfg.RedisKeyPrefix, logger)
		publishers = append(publishers, redisPub)
		logger.Info("redis entity surface enabled", "addr", cfg.RedisAddr, "key_prefix", cfg.RedisKeyPrefix)
	}
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publishers = append(publishers, kafkaWriter)
		logger.Info("kafka sensor stream enabled", "topic", cfg.KafkaSinkTopic)
	}

	fetcher := feed.NewFetcher(cfg.FetchTimeout, logger)
	parser := feed.NewParser()
	p := pipeline.New(cfg, fetcher, parser, publishers, logger, metrics, clockwork.NewRealClock())

	srv := httpapi.NewServer(cfg.HTTPAddr, store, p, httpapi.WidgetConfig{
		Title:         cfg.WidgetTitle,
		ShowStatusDot: cfg.WidgetShowStatusDot,
		SensorPrefix:  cfg.SensorPrefix,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if redisPub != nil {
		if err := redisPub.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
