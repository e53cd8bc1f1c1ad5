package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusworks/registrar-api/api/swagger"
	"github.com/campusworks/registrar-api/internal/handler"
	"github.com/campusworks/registrar-api/internal/middleware"
	"github.com/campusworks/registrar-api/internal/repository"
	"github.com/campusworks/registrar-api/internal/service"
	"github.com/campusworks/registrar-api/pkg/cache"
	"github.com/campusworks/registrar-api/pkg/config"
	"github.com/campusworks/registrar-api/pkg/database"
	"github.com/campusworks/registrar-api/pkg/logger"
	corsmiddleware "github.com/campusworks/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusworks/registrar-api/pkg/middleware/requestid"
)

// @title Registrar API
// @version 0.1.0
// @description Academic records rule engine
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Redis is optional; without it reads skip the cache layer.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Registrar.GPACacheTTL, logr, redisClient != nil)
	defer cacheRepo.Close() //nolint:errcheck

	catalogRepo := repository.NewCatalogRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	metricRepo := repository.NewMetricRepository(db)

	tokenSvc := service.NewTokenService(cfg.JWT.Secret)
	enrollmentSvc := service.NewEnrollmentService(db, enrollmentRepo, catalogRepo, studentRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(db, scheduleRepo, catalogRepo, validate, logr)
	gpaSvc := service.NewGPAService(metricRepo, studentRepo, cacheSvc, metricsSvc, logr)
	paymentSvc := service.NewPaymentService(db, paymentRepo, studentRepo, catalogRepo, cfg.Exports.Enabled, validate, logr)
	statusSvc := service.NewStatusService(studentRepo, studentRepo, gradeRepo, cfg.Registrar.PassingScore, logr)
	gradeSvc := service.NewGradeService(db, gradeRepo, assessmentRepo, studentRepo, statusSvc, cacheSvc, cfg.Exports.Enabled, validate, logr)

	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	gpaHandler := handler.NewGPAHandler(gpaSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authed := api.Group("", middleware.JWT(tokenSvc))

	api.GET("/enrollments", enrollmentHandler.List)
	authed.POST("/enrollments", enrollmentHandler.Create)
	api.GET("/sections/:id/enrollments", enrollmentHandler.SectionRoster)

	authed.POST("/schedule/slots", scheduleHandler.Assign)
	api.GET("/schedule/room-conflicts", scheduleHandler.RoomConflicts)
	api.GET("/instructors/:id/schedule", scheduleHandler.InstructorSchedule)

	authed.POST("/grades", gradeHandler.Record)
	api.GET("/students/:id/grades", gradeHandler.StudentGrades)
	api.GET("/students/:id/transcript/export", gradeHandler.ExportTranscript)
	authed.POST("/assessments", gradeHandler.CreateAssessment)
	api.GET("/sections/:id/assessments", gradeHandler.SectionAssessments)

	api.GET("/students/:id/gpa", gpaHandler.StudentGPA)
	api.GET("/programs/:id/ranking", gpaHandler.ProgramRanking)
	api.GET("/metrics/above-average", gpaHandler.AboveAverage)
	api.GET("/metrics/system", metricsHandler.System)

	authed.POST("/payments", paymentHandler.Create)
	api.GET("/students/:id/payments", paymentHandler.StudentPayments)
	api.GET("/students/:id/payments/export", paymentHandler.Export)
	api.GET("/payments/summary/methods", paymentHandler.MethodSummary)
	api.GET("/payments/summary/terms", paymentHandler.TermSummary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
