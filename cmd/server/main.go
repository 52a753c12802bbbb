// Package main runs the live interaction engine: HTTP APIs, WebSocket fan-out and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/live-engine/config"
	"github.com/aura-webinar/live-engine/internal/api"
	"github.com/aura-webinar/live-engine/internal/auth"
	"github.com/aura-webinar/live-engine/internal/engine"
	"github.com/aura-webinar/live-engine/internal/interactions"
	"github.com/aura-webinar/live-engine/internal/middleware"
	"github.com/aura-webinar/live-engine/internal/presence"
	"github.com/aura-webinar/live-engine/internal/questions"
	"github.com/aura-webinar/live-engine/internal/reactions"
	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/internal/responses"
	"github.com/aura-webinar/live-engine/internal/webinars"
	"github.com/aura-webinar/live-engine/pkg/database"
	"github.com/aura-webinar/live-engine/pkg/queue"
	"github.com/aura-webinar/live-engine/pkg/redis"
	"github.com/aura-webinar/live-engine/pkg/retry"
)

// stores groups the persistence backends chosen by ENGINE_STORE.
type stores struct {
	webinars     webinars.Store
	interactions interactions.Store
	responses    responses.Store
	questions    questions.Store
	sessions     presence.SessionStore
}

func memoryStores(cfg *config.Config) stores {
	return stores{
		webinars:     webinars.NewMemory(cfg.Engine.AutoCreateWebinars),
		interactions: interactions.NewMemory(),
		responses:    responses.NewMemory(),
		questions:    questions.NewMemory(),
		sessions:     presence.NewMemorySessionLog(),
	}
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		webinars:     webinars.NewRepository(pool),
		interactions: interactions.NewRepository(pool),
		responses:    responses.NewRepository(pool),
		questions:    questions.NewRepository(pool),
		sessions:     presence.NewSessionLog(pool),
	}
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	st := memoryStores(cfg)
	if cfg.Engine.Store == config.StorePostgres {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		st = postgresStores(pool)
	}

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	policy := retry.Policy{Attempts: cfg.Engine.RetryAttempts, Backoff: cfg.Engine.RetryBackoff}

	// Fan-out: Redis pub/sub across instances when configured, local broadcast otherwise.
	var hub *realtime.Hub
	if rdb != nil {
		redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, redisPubSub, redisPubSub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}
	notifier := engine.NewNotifier(hub, policy, logger)
	go notifier.Run()

	var counter reactions.Counter = reactions.NewMemoryCounter()
	if cfg.Engine.ReactionBackend == config.ReactionBackendRedis {
		counter = reactions.NewRedisCounter(rdb.Client)
	}

	tracker := presence.NewTracker(cfg.Engine.PresenceGrace, presence.NewHooks(notifier, st.sessions, logger))
	hub.SetPresenceHandlers(tracker.Connect, tracker.Disconnect)

	controller := interactions.NewController(st.interactions, st.webinars, notifier, logger)
	aggregator := responses.NewAggregator(st.responses, controller, notifier, logger)
	reactionService := reactions.NewService(counter, reactions.NewLimiter(cfg.Engine.ReactionRatePerSec, cfg.Engine.ReactionBurst), notifier, logger)

	var snapshots engine.SnapshotScheduler = engine.InlineScheduler{Saver: aggregator, Logger: logger}
	if rdb != nil && cfg.Engine.Store == config.StorePostgres {
		snapshots = engine.QueueScheduler{Queue: queue.NewQueue(rdb.Client, logger)}
	}

	eng := engine.New(engine.Components{
		Webinars:     st.webinars,
		Interactions: controller,
		Responses:    aggregator,
		Questions:    questions.NewQueue(st.questions, st.webinars, notifier, logger),
		Reactions:    reactionService,
		Presence:     tracker,
		Sessions:     st.sessions,
		Snapshots:    snapshots,
	}, policy, logger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	api.Routes(router, api.NewHandler(eng, logger), jwtService,
		realtime.ServeWs(hub, logger, jwtService.SocketValidator(), eng.Snapshot, eng.HandleInbound))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background loops: coalesced reaction broadcasts and limiter eviction.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go reactionService.Run(workerCtx, cfg.Engine.ReactionFlush)

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Engine.Store),
			zap.Bool("redis", rdb != nil))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	workerCancel()
	tracker.Close()
	notifier.Close()
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
