package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-engine-api/api/swagger"
	"github.com/noah-isme/timetable-engine-api/internal/handler"
	"github.com/noah-isme/timetable-engine-api/internal/middleware"
	"github.com/noah-isme/timetable-engine-api/internal/oracle"
	"github.com/noah-isme/timetable-engine-api/internal/repository"
	"github.com/noah-isme/timetable-engine-api/internal/service"
	"github.com/noah-isme/timetable-engine-api/pkg/cache"
	"github.com/noah-isme/timetable-engine-api/pkg/config"
	"github.com/noah-isme/timetable-engine-api/pkg/database"
	"github.com/noah-isme/timetable-engine-api/pkg/jobs"
	"github.com/noah-isme/timetable-engine-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-engine-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-engine-api/pkg/middleware/requestid"
)

// @title Timetable Engine API
// @version 0.1.0
// @description Constraint checking and conflict resolution engine for course timetables
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, run caching disabled", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	runRepo := repository.NewRunRepository(db)
	slotRepo := repository.NewRunSlotRepository(db)

	metricsSvc := service.NewMetricsService()
	timetableValidator := service.NewTimetableValidator(cfg.Engine.DistributionTolerance)

	runSvc := service.NewTimetableRunService(
		selectOracle(cfg, logr),
		timetableValidator,
		runRepo,
		slotRepo,
		db,
		cacheRepo,
		nil,
		metricsSvc,
		validator.New(),
		logr,
		service.TimetableRunConfig{
			MaxRepairIterations: cfg.Engine.MaxRepairIterations,
			CacheTTL:            cfg.Runs.CacheTTL,
		},
	)
	exportSvc := service.NewExportService(runRepo, slotRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Runs.AsyncEnabled {
		worker := service.NewRunWorker(runSvc, cfg.Runs.WorkerRetries, logr)
		queue := jobs.NewQueue("timetable-runs", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Runs.WorkerConcurrency,
			MaxRetries: cfg.Runs.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		runSvc.AttachQueue(queue)

		if recovered, err := runSvc.RecoverQueued(ctx); err != nil {
			logr.Warn("queued run recovery failed", zap.Error(err))
		} else if recovered > 0 {
			logr.Info("re-enqueued stranded runs", zap.Int("count", recovered))
		}
	}

	timetableHandler := handler.NewTimetableHandler(runSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.JWT.Enabled {
		tokens := service.NewTokenService(cfg.JWT.Secret, 0)
		api.Use(middleware.JWT(tokens))
	}

	timetables := api.Group("/timetables")
	{
		timetables.POST("/validate", timetableHandler.Validate)
		timetables.POST("/generate", timetableHandler.Generate)
		timetables.POST("/runs", timetableHandler.EnqueueRun)
		timetables.GET("/runs", timetableHandler.ListRuns)
		timetables.GET("/runs/:id", timetableHandler.GetRun)
		timetables.GET("/runs/:id/slots", timetableHandler.Slots)
		timetables.GET("/runs/:id/export", timetableHandler.Export)
		timetables.DELETE("/runs/:id", timetableHandler.DeleteRun)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "oracle", oracleMode(cfg))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func selectOracle(cfg *config.Config, logr *zap.Logger) service.CandidateOracle {
	if cfg.Oracle.BaseURL != "" {
		return oracle.NewHTTPOracle(cfg.Oracle.BaseURL, cfg.Oracle.Timeout, logr)
	}
	return oracle.NewHeuristicOracle(logr)
}

func oracleMode(cfg *config.Config) string {
	if cfg.Oracle.BaseURL != "" {
		return "http"
	}
	return "heuristic"
}
