package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"stageflow/internal/api/handler"
	"stageflow/internal/config"
	"stageflow/internal/core/ports"
	"stageflow/internal/core/postgres/repository"
	"stageflow/internal/directory"
	"stageflow/internal/domain"
	"stageflow/internal/engine"
	infraredis "stageflow/internal/infrastructure/redis"
	"stageflow/internal/notify"
	"stageflow/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&domain.WorkflowTemplate{}, &domain.Node{}, &domain.Edge{},
		&domain.Instance{}, &domain.Task{}, &domain.ExecutionLogEntry{},
	); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	templateRepo := repository.NewTemplateRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	logRepo := repository.NewExecutionLogRepository(db)

	// 3. Notification pipeline (optional, the engine runs without redis)
	var notifier ports.Notifier
	if cfg.Redis.Addr != "" {
		client, err := infraredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		outbox := infraredis.NewOutbox(client)
		publisher := infraredis.NewPublisher(client)
		notifier = outbox

		dispatcher := notify.NewDispatcher(outbox, publisher, logger.Named("notify"))
		go dispatcher.Run(ctx)
	} else {
		logger.Warn("redis not configured, notifications disabled")
	}

	// 4. Directory collaborator
	var resolver ports.DirectoryResolver
	var validator ports.EntityValidator
	if cfg.Directory.URL != "" {
		client := directory.NewClient(cfg.Directory.URL, time.Duration(cfg.Directory.TimeoutSeconds)*time.Second)
		resolver = client
		validator = client
	} else {
		positions := make(map[string][]ports.Assignee, len(cfg.Directory.Static))
		for position, assignees := range cfg.Directory.Static {
			for _, a := range assignees {
				positions[position] = append(positions[position], ports.Assignee{UserID: a.UserID, DisplayName: a.DisplayName})
			}
		}
		resolver = directory.NewStaticResolver(positions)
	}

	// 5. Metrics and the engine
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)

	eng := engine.New(engine.Params{
		Templates:         templateRepo,
		Instances:         instanceRepo,
		Tasks:             taskRepo,
		Log:               logRepo,
		Directory:         resolver,
		Validator:         validator,
		StrictEntityCheck: cfg.Engine.StrictEntityCheck,
		Notifier:          notifier,
		Logger:            logger.Named("engine"),
		Metrics:           metrics,
	})

	// 6. HTTP surface
	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	workflowHandler := handler.NewWorkflowHandler(eng, templateRepo, logger.Named("api"))
	workflowHandler.RegisterRoutes(router.Group("/api/v1"))

	server := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 7. Graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
