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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-timetable-api/api/swagger"
	"github.com/noah-isme/academic-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/academic-timetable-api/internal/middleware"
	"github.com/noah-isme/academic-timetable-api/internal/models"
	"github.com/noah-isme/academic-timetable-api/internal/repository"
	"github.com/noah-isme/academic-timetable-api/internal/service"
	"github.com/noah-isme/academic-timetable-api/pkg/cache"
	"github.com/noah-isme/academic-timetable-api/pkg/config"
	"github.com/noah-isme/academic-timetable-api/pkg/database"
	"github.com/noah-isme/academic-timetable-api/pkg/jobs"
	"github.com/noah-isme/academic-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-timetable-api/pkg/middleware/requestid"
)

// @title Academic Timetable API
// @version 1.0.0
// @description Timetable scheduling and conflict resolution for class sessions and exam sittings.
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var cacheClient redis.Cmdable
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheClient = redisClient
		}
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	bookingRepo := repository.NewBookingRepository(db, metricsSvc)
	roomRepo := repository.NewRoomRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewUnitAssignmentRepository(db)
	cacheRepo := repository.NewCacheRepository(cacheClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ViewTTL, logr, cacheClient != nil)
	catalogSvc := service.NewCatalogService(roomRepo, slotRepo, cacheSvc, cfg.Cache.CatalogTTL, logr)

	publisher := service.NewBookingEventPublisher(cacheSvc, metricsSvc, logr, jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.RetryDelay,
	})
	publisher.Start(ctx)
	defer publisher.Stop()

	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	timetableSvc := service.NewTimetableService(
		bookingRepo,
		catalogSvc,
		roomRepo,
		catalogSvc,
		enrollmentRepo,
		assignmentRepo,
		db,
		publisher,
		metricsSvc,
		cacheSvc,
		service.NewRandomizer(cfg.Scheduler.RandomSeed),
		validate,
		logr,
		service.TimetableConfig{
			Constraints:    constraintsFromConfig(cfg.Scheduler),
			TxRetries:      cfg.Scheduler.TxRetries,
			TxRetryBackoff: cfg.Scheduler.TxRetryBackoff,
			ViewTTL:        cfg.Cache.ViewTTL,
		},
	)

	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessProbe{
		"postgres": db.PingContext,
		"redis":    cacheRepo.Ping,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics"))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokenSvc))

	timetable := api.Group("/timetable")
	timetable.GET("/constraints", timetableHandler.Constraints)
	timetable.POST("/conflicts/check", timetableHandler.CheckConflicts)
	timetable.POST("/venues/allocate", timetableHandler.AllocateVenue)
	timetable.POST("/assignments/find", timetableHandler.FindAssignment)
	timetable.GET("/bookings", timetableHandler.ListBookings)

	writer := timetable.Group("", internalmiddleware.RequireTimetableWriter())
	writer.POST("/class-sessions", internalmiddleware.Audit(logr, "class_session.schedule"), timetableHandler.ScheduleClassSession)
	writer.POST("/class-sessions/bulk", internalmiddleware.Audit(logr, "class_session.bulk_schedule"), timetableHandler.BulkScheduleClasses)
	writer.POST("/exams/bulk", internalmiddleware.Audit(logr, "exam.bulk_schedule"), timetableHandler.BulkScheduleExams)
	writer.PUT("/bookings/:id", internalmiddleware.Audit(logr, "booking.update"), timetableHandler.UpdateBooking)
	writer.DELETE("/bookings/:id", internalmiddleware.Audit(logr, "booking.delete"), timetableHandler.DeleteBooking)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func constraintsFromConfig(cfg config.SchedulerConfig) models.ConstraintConfig {
	return models.ConstraintConfig{
		MaxPhysicalSessionsPerGroupPerDay: cfg.MaxPhysicalSessionsPerGroupPerDay,
		MaxTotalHoursPerGroupPerDay:       cfg.MaxTotalHoursPerGroupPerDay,
		MinHoursPerDay:                    cfg.MinHoursPerDay,
		RequireMixedMode:                  cfg.RequireMixedMode,
		AvoidConsecutiveSlots:             cfg.AvoidConsecutiveSlots,
		PhysicalMinDurationHours:          cfg.PhysicalMinDurationHours,
		MaxAssignmentAttempts:             cfg.MaxAssignmentAttempts,
		MaxBulkDaysPerUnit:                cfg.MaxBulkDaysPerUnit,
	}
}
