package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/adapters/backend"
	"github.com/khoahotran/career-path/adapters/event"
	httpAdapter "github.com/khoahotran/career-path/adapters/http"
	"github.com/khoahotran/career-path/adapters/llm"
	"github.com/khoahotran/career-path/adapters/persistence"
	adminUC "github.com/khoahotran/career-path/internal/application/usecase/admin"
	cvUC "github.com/khoahotran/career-path/internal/application/usecase/cv"
	jobUC "github.com/khoahotran/career-path/internal/application/usecase/job"
	profileUC "github.com/khoahotran/career-path/internal/application/usecase/profile"
	roadmapUC "github.com/khoahotran/career-path/internal/application/usecase/roadmap"
	"github.com/khoahotran/career-path/internal/config"
	"github.com/khoahotran/career-path/pkg/auth"
	"github.com/khoahotran/career-path/pkg/logger"
	"github.com/khoahotran/career-path/pkg/tracing"
)

const serviceName = "career-path-api"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Starting Career Path API Server...", zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewTracerProvider(cfg, appLogger, serviceName)
	if err != nil {
		appLogger.Fatal("cannot init tracing", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", err)
		}
	}()

	// Initialize dependencies
	dbPool, err := persistence.NewPostgresPool(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Postgres", err)
	}
	defer dbPool.Close()

	redisClient, err := persistence.NewRedisClient(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Redis", err)
	}
	defer redisClient.Close()

	kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot init Kafka", err)
	}
	defer kafkaClient.Close()

	// Repositories and remotes
	profileRepo := persistence.NewPostgresProfileRepo(dbPool, appLogger)
	adminRepo := persistence.NewPostgresAdminRepo(dbPool, appLogger)
	jobCatalog := persistence.NewPostgresJobCatalog(dbPool, appLogger)
	localCache := persistence.NewRedisLocalCache(redisClient, cfg.Cache.TTL, appLogger)
	backendClient := backend.NewClient(cfg, appLogger)

	// Services
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan, cfg.Auth.Issuer)

	// Use Cases
	progressUseCase := roadmapUC.NewProgressUseCase(backendClient, localCache, kafkaClient, appLogger, cfg.Sync.BackgroundTimeout)
	registry := profileUC.NewRegistry(localCache, appLogger, func() *profileUC.Reconciler {
		return profileUC.NewReconciler(profileRepo, backendClient, localCache, appLogger,
			profileUC.WithEvents(kafkaClient),
			profileUC.WithRoadmapSink(progressUseCase),
			profileUC.WithBackgroundTimeout(cfg.Sync.BackgroundTimeout),
		)
	})
	jobUseCase := jobUC.NewJobUseCase(backendClient, jobCatalog, localCache, appLogger)
	isAdminUseCase := adminUC.NewIsAdminUseCase(adminRepo, appLogger)

	var analyzeCVUseCase *cvUC.AnalyzeCVUseCase
	if parser, err := llm.NewCVParserAdapter(cfg, appLogger); err != nil {
		appLogger.Warn("CV analysis disabled", zap.Error(err))
	} else {
		analyzeCVUseCase = cvUC.NewAnalyzeCVUseCase(parser, appLogger, cfg.CV.Timeout)
	}

	// HTTP Handlers
	handlers := httpAdapter.Handlers{
		Session: httpAdapter.NewSessionHandler(registry, progressUseCase, appLogger),
		Profile: httpAdapter.NewProfileHandler(registry, appLogger),
		Roadmap: httpAdapter.NewRoadmapHandler(progressUseCase, registry, appLogger),
		Job:     httpAdapter.NewJobHandler(jobUseCase, registry, appLogger),
		CV:      httpAdapter.NewCVHandler(analyzeCVUseCase, registry, appLogger),
		Admin:   httpAdapter.NewAdminHandler(isAdminUseCase),
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(serviceName, handlers, jwtSvc, appLogger)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Sync.BackgroundTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}

	// Let in-flight background syncs and roadmap persists finish.
	registry.Wait()
	progressUseCase.Wait()
	appLogger.Info("Server exited")
}
