// Package main runs the background job worker that persists final interaction tallies.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/live-engine/config"
	"github.com/aura-webinar/live-engine/internal/interactions"
	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/internal/responses"
	"github.com/aura-webinar/live-engine/internal/webinars"
	"github.com/aura-webinar/live-engine/internal/worker"
	"github.com/aura-webinar/live-engine/pkg/database"
	"github.com/aura-webinar/live-engine/pkg/queue"
	"github.com/aura-webinar/live-engine/pkg/redis"
)

// noopPublisher drops events; the worker never talks to subscribers.
type noopPublisher struct{}

func (noopPublisher) Publish(uuid.UUID, realtime.Event) {}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Engine.Store != config.StorePostgres || !cfg.RedisEnabled() {
		logger.Fatal("worker requires ENGINE_STORE=postgres and REDIS_ADDR")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	controller := interactions.NewController(interactions.NewRepository(pool), webinars.NewRepository(pool), noopPublisher{}, logger)
	aggregator := responses.NewAggregator(responses.NewRepository(pool), controller, noopPublisher{}, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewSnapshotProcessor(aggregator, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
