package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/unitrack/unitrack-api/api/swagger"
	"github.com/unitrack/unitrack-api/internal/handler"
	"github.com/unitrack/unitrack-api/internal/middleware"
	"github.com/unitrack/unitrack-api/internal/models"
	"github.com/unitrack/unitrack-api/internal/repository"
	"github.com/unitrack/unitrack-api/internal/service"
	"github.com/unitrack/unitrack-api/pkg/cache"
	"github.com/unitrack/unitrack-api/pkg/config"
	"github.com/unitrack/unitrack-api/pkg/database"
	"github.com/unitrack/unitrack-api/pkg/logger"
	corsmiddleware "github.com/unitrack/unitrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/unitrack/unitrack-api/pkg/middleware/requestid"
)

// @title UniTrack Scheduling API
// @version 1.0.0
// @description Class session scheduling, conflict detection and time suggestions
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Scheduler.CacheTTL, logr, false)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.CacheTTL, logr, true)
		defer cacheRepo.Close() //nolint:errcheck
	}

	sessionRepo := repository.NewSessionRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	assignmentRepo := repository.NewCourseAssignmentRepository(db)
	eventRepo := repository.NewSessionEventRepository(db)

	conflictSvc := service.NewConflictService(sessionRepo, metricsSvc, logr)
	availabilitySvc := service.NewAvailabilityService(sessionRepo, cacheSvc, cfg.Scheduler, logr)
	suggestionSvc := service.NewSuggestionService(assignmentRepo, roomRepo, sessionRepo, availabilitySvc, metricsSvc, cfg.Scheduler.SuggestionLimit, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, assignmentRepo, roomRepo, eventRepo, conflictSvc, cacheSvc, metricsSvc, db, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, conflictSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var relay *service.EventRelay
	if cfg.Events.Enabled {
		relay = service.NewEventRelay(eventRepo, service.NewLogNotifier(logr), cfg.Events, logr)
		relay.Start(ctx)
		defer relay.Stop()
	}

	sessionHandler := handler.NewSessionHandler(sessionSvc, suggestionSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	systemHandler := handler.NewSystemHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))
	canSchedule := middleware.RequireRoles(models.RoleAdmin, models.RoleLecturer)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	{
		sessions := api.Group("/sessions")
		{
			sessions.GET("", sessionHandler.List)
			sessions.POST("", canSchedule, sessionHandler.Create)
			sessions.POST("/check-conflicts", sessionHandler.CheckConflicts)
			sessions.GET("/suggest-times", sessionHandler.SuggestTimes)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.PUT("/:id", canSchedule, sessionHandler.Update)
			sessions.DELETE("/:id", canSchedule, sessionHandler.Delete)
			sessions.POST("/:id/cancel", canSchedule, sessionHandler.Cancel)
			sessions.GET("/:id/children", sessionHandler.Children)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("", roomHandler.List)
			rooms.POST("", adminOnly, roomHandler.Create)
			rooms.GET("/check-availability", roomHandler.CheckAvailability)
			rooms.GET("/:id", roomHandler.Get)
		}

		api.GET("/lecturers/:id/free-times", availabilityHandler.FreeTimes)
		api.GET("/course-assignments/:id", assignmentHandler.Get)
		api.GET("/system/status", systemHandler.Status)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
