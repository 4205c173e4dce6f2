package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sms-core-api/api/swagger"
	"github.com/noah-isme/sms-core-api/internal/handler"
	"github.com/noah-isme/sms-core-api/internal/middleware"
	"github.com/noah-isme/sms-core-api/internal/repository"
	"github.com/noah-isme/sms-core-api/internal/service"
	"github.com/noah-isme/sms-core-api/migrations"
	"github.com/noah-isme/sms-core-api/pkg/cache"
	"github.com/noah-isme/sms-core-api/pkg/config"
	"github.com/noah-isme/sms-core-api/pkg/database"
	"github.com/noah-isme/sms-core-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sms-core-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sms-core-api/pkg/middleware/requestid"
)

// @title School Management Core API
// @version 1.0.0
// @description Enrollment, attendance and progress engines of the school management system.
// @BasePath /api/v1
// @schemes http
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db, migrations.FS)
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("database migrated", zap.Strings("applied", applied))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching and rate limiting disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	statsCache := service.NewCacheService(cacheRepo, metrics, cfg.Cache.StatisticsTTL, logr, cacheRepo != nil)
	identityCache := service.NewCacheService(cacheRepo, metrics, cfg.Cache.IdentityTTL, logr, cacheRepo != nil)

	tx := repository.NewTxManager(db)
	users := repository.NewUserRepository(db)
	students := repository.NewStudentRepository(db)
	teachers := repository.NewTeacherRepository(db)
	groups := repository.NewClassGroupRepository(db)
	courses := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	audit := repository.NewAuditRepository(db)

	notifications := service.NewNotificationService(cfg.Notifications, service.NewLogSender(logr), metrics, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	verifier := service.NewTokenVerifier(cfg.JWT)
	identity := service.NewIdentityService(users, identityCache, logr)
	catalog := service.NewCatalogService(tx, groups, courses, teachers, students, validate, logr)
	progress := service.NewProgressService(service.ProgressDeps{
		Assignments: assignments,
		Attendance:  attendanceRepo,
		Grades:      gradeRepo,
		Students:    students,
		Courses:     courses,
		Enrollments: enrollmentRepo,
	}, cfg.Policy, validate, logr)
	enrollments := service.NewEnrollmentService(service.EnrollmentDeps{
		Tx:          tx,
		Repo:        enrollmentRepo,
		Students:    students,
		Courses:     courses,
		Eligibility: catalog,
		Audit:       audit,
		Notifier:    notifications,
		Progress:    progress,
		Cache:       statsCache,
		Metrics:     metrics,
	}, cfg.Policy, validate, logr)
	attendance := service.NewAttendanceService(service.AttendanceDeps{
		Tx:          tx,
		Repo:        attendanceRepo,
		Enrollments: enrollmentRepo,
		Students:    students,
		Courses:     courses,
		Metrics:     metrics,
	}, cfg.Policy, validate, logr)
	studentSvc := service.NewStudentService(service.StudentDeps{
		Tx:          tx,
		Students:    students,
		Groups:      groups,
		Enrollments: enrollmentRepo,
		Progress:    progress,
		Attendance:  attendance,
		Assignments: assignments,
		Audit:       audit,
	}, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	probes := map[string]handler.Probe{
		"postgres": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if redisClient != nil {
		probes["redis"] = redisProbe(redisClient)
	}

	handler.Register(r, cfg.APIPrefix, handler.Handlers{
		Enrollment: handler.NewEnrollmentHandler(enrollments),
		Attendance: handler.NewAttendanceHandler(attendance),
		Grade:      handler.NewGradeHandler(progress),
		Catalog:    handler.NewCatalogHandler(catalog),
		Student:    handler.NewStudentHandler(studentSvc),
		Identity:   handler.NewIdentityHandler(identity),
		Health:     handler.NewHealthHandler(probes),
		Metrics:    metrics.Handler(),
	}, handler.Guards{
		Auth:      middleware.JWT(verifier),
		RateLimit: middleware.RateLimit(repository.NewRateLimitRepository(redisClient), cfg.RateLimit, metrics, logr),
		Require: func(codename string) gin.HandlerFunc {
			return middleware.RequirePermission(identity, codename)
		},
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
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

func redisProbe(client *redis.Client) handler.Probe {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
