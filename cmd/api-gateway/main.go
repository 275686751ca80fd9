package main

import (
	"context"
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

	_ "github.com/Rakshithh-K/New-Hack/api/swagger"
	"github.com/Rakshithh-K/New-Hack/internal/handler"
	"github.com/Rakshithh-K/New-Hack/internal/middleware"
	"github.com/Rakshithh-K/New-Hack/internal/repository"
	"github.com/Rakshithh-K/New-Hack/internal/service"
	"github.com/Rakshithh-K/New-Hack/pkg/cache"
	"github.com/Rakshithh-K/New-Hack/pkg/config"
	"github.com/Rakshithh-K/New-Hack/pkg/database"
	"github.com/Rakshithh-K/New-Hack/pkg/jobs"
	"github.com/Rakshithh-K/New-Hack/pkg/logger"
	corsmiddleware "github.com/Rakshithh-K/New-Hack/pkg/middleware/cors"
	reqidmiddleware "github.com/Rakshithh-K/New-Hack/pkg/middleware/requestid"
)

// @title Timetable API
// @version 0.1.0
// @description Constraint-based university timetable generation
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TimetableTTL, logr, true)
		}
	}

	courseRepo := repository.NewCourseRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	validate := validator.New()

	// The regeneration queue and the generator depend on each other, so the
	// queue handler closes over a late-bound service pointer.
	var generatorSvc *service.GeneratorService
	queue := jobs.NewQueue("timetable-regeneration", func(ctx context.Context, job jobs.Job) error {
		return generatorSvc.HandleRegenerateJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Generator.WorkerConcurrency,
		MaxRetries: cfg.Generator.WorkerRetries,
		Logger:     logr,
	})

	generatorSvc = service.NewGeneratorService(
		courseRepo,
		facultyRepo,
		roomRepo,
		studentRepo,
		timetableRepo,
		queue,
		cacheSvc,
		metricsSvc,
		logr,
		service.GeneratorConfig{RandomSeed: cfg.Generator.RandomSeed},
	)

	timetableSvc := service.NewTimetableService(timetableRepo, cacheSvc, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	facultySvc := service.NewFacultyService(facultyRepo, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, courseRepo, generatorSvc, timetableRepo, validate, logr)

	timetableHandler := handler.NewTimetableHandler(generatorSvc, timetableSvc, studentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	facultyHandler := handler.NewFacultyHandler(facultySvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/timetable/generate", timetableHandler.Generate)
		api.GET("/timetable/latest", timetableHandler.Latest)
		api.GET("/timetable/latest/grid", timetableHandler.LatestGrid)
		api.POST("/timetable/regenerate", timetableHandler.RegenerateAll)

		api.GET("/courses", courseHandler.List)
		api.POST("/courses", courseHandler.Create)
		api.GET("/courses/:id", courseHandler.Get)
		api.PUT("/courses/:id", courseHandler.Update)
		api.DELETE("/courses/:id", courseHandler.Delete)

		api.GET("/faculty", facultyHandler.List)
		api.POST("/faculty", facultyHandler.Create)
		api.GET("/faculty/:id", facultyHandler.Get)
		api.PUT("/faculty/:id", facultyHandler.Update)
		api.PUT("/faculty/:id/availability", facultyHandler.UpdateAvailability)
		api.DELETE("/faculty/:id", facultyHandler.Delete)

		api.GET("/rooms", roomHandler.List)
		api.POST("/rooms", roomHandler.Create)
		api.GET("/rooms/:id", roomHandler.Get)
		api.DELETE("/rooms/:id", roomHandler.Delete)

		api.GET("/students", studentHandler.List)
		api.POST("/students", studentHandler.Register)
		api.GET("/students/:id", studentHandler.Get)
		api.PUT("/students/:id/courses", studentHandler.UpdateCourses)
		api.DELETE("/students/:id", studentHandler.Delete)

		api.POST("/students/:id/timetable", timetableHandler.GenerateForStudent)
		api.GET("/students/:id/timetable", timetableHandler.StudentGrid)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
