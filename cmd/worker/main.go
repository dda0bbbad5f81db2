package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/adapters/backend"
	"github.com/khoahotran/career-path/adapters/event"
	"github.com/khoahotran/career-path/adapters/persistence"
	"github.com/khoahotran/career-path/internal/application/service"
	profileUC "github.com/khoahotran/career-path/internal/application/usecase/profile"
	"github.com/khoahotran/career-path/internal/config"
	"github.com/khoahotran/career-path/pkg/logger"
	"github.com/khoahotran/career-path/pkg/tracing"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Starting Career Path sync worker...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "career-path-worker")
	if err != nil {
		appLogger.Fatal("cannot init tracing", err)
	}
	defer tp.Shutdown(context.Background())

	// Database
	dbPool, err := persistence.NewPostgresPool(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Postgres", err)
	}
	defer dbPool.Close()

	// Worker Use Case
	processSyncEventUC := profileUC.NewProcessSyncEventUseCase(
		persistence.NewPostgresProfileRepo(dbPool, appLogger),
		backend.NewClient(cfg, appLogger),
		appLogger,
		cfg.Sync.RetryMaxTries,
		cfg.Sync.RetryMaxElapsed,
	)

	// Kafka Consumer
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    event.TopicProfileEvents,
		GroupID:  "profile-sync-retry-group",
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer consumer.Close()

	appLogger.Info("Worker listening", zap.String("topic", event.TopicProfileEvents))

	for {
		msg, err := consumer.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				appLogger.Info("Worker stopped")
				return
			}
			appLogger.Error("Failed to read message from Kafka", err)
			continue
		}

		var payload service.ProfileEvent
		if err := sonic.Unmarshal(msg.Value, &payload); err != nil {
			appLogger.Warn("Failed to unmarshal event, skipping", zap.Error(err), zap.Int64("offset", msg.Offset))
			commitMessage(consumer, msg, appLogger)
			continue
		}

		// A sync that gave up stays committed; the next profile update
		// supersedes it anyway.
		if err := processSyncEventUC.Execute(ctx, payload); err != nil {
			if errors.Is(err, context.Canceled) {
				appLogger.Info("Worker stopped mid-retry, message left uncommitted")
				return
			}
			appLogger.Error("Profile sync retry exhausted", err, zap.String("user_id", payload.UserID.String()))
		}

		commitMessage(consumer, msg, appLogger)
	}
}

func commitMessage(consumer *kafka.Reader, msg kafka.Message, log logger.Logger) {
	if err := consumer.CommitMessages(context.Background(), msg); err != nil {
		log.Error("Failed to commit message", err)
	}
}
