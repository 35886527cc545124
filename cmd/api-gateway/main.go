package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/cimas-digital/matricula-api/api/swagger"
	"github.com/cimas-digital/matricula-api/internal/handler"
	"github.com/cimas-digital/matricula-api/internal/middleware"
	"github.com/cimas-digital/matricula-api/internal/repository"
	"github.com/cimas-digital/matricula-api/internal/service"
	"github.com/cimas-digital/matricula-api/pkg/cache"
	"github.com/cimas-digital/matricula-api/pkg/config"
	"github.com/cimas-digital/matricula-api/pkg/database"
	"github.com/cimas-digital/matricula-api/pkg/logger"
	corsmiddleware "github.com/cimas-digital/matricula-api/pkg/middleware/cors"
	reqidmiddleware "github.com/cimas-digital/matricula-api/pkg/middleware/requestid"
)

// @title Matricula API
// @version 1.0.0
// @description Enrollment case workflow for the school administration panel
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
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.DefaultTTL, logr, true)
		}
	}

	caseRepo := repository.NewCaseRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	capacitySvc := service.NewCapacityService(classroomRepo, cacheSvc, metrics, cfg.Capacity.CacheTTL, logr)
	caseSvc := service.NewCaseService(caseRepo, capacitySvc, cfg.Capacity.LookupTimeout, nil, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, logr)
	familySvc := service.NewFamilyService(familyRepo, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)
	exportSvc := service.NewExportService(nil, nil, logr)

	var archive *service.ExportArchive
	if cfg.Export.SignSecret != "" {
		archive, err = service.NewExportArchive(service.ExportArchiveConfig{
			Dir:        cfg.Export.ArchiveDir,
			SignSecret: cfg.Export.SignSecret,
			Retention:  cfg.Export.Retention,
		}, logr)
		if err != nil {
			logr.Sugar().Warnw("export archive unavailable", "error", err)
		} else {
			archive.Start(context.Background())
			defer archive.Stop()
			exportSvc.AttachArchive(archive)
		}
	}

	caseHandler := handler.NewCaseHandler(caseSvc, exportSvc, archive, metrics)
	classroomHandler := handler.NewClassroomHandler(classroomSvc, capacitySvc)
	familyHandler := handler.NewFamilyHandler(familySvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		cases := api.Group("/enrollment-cases")
		cases.POST("", caseHandler.Open)
		cases.POST("/resume", caseHandler.Resume)
		cases.GET("/:id", caseHandler.Snapshot)
		cases.PATCH("/:id", caseHandler.UpdateFields)
		cases.DELETE("/:id", caseHandler.Close)
		cases.POST("/:id/students", caseHandler.AddStudent)
		cases.DELETE("/:id/students/:slotId", caseHandler.RemoveStudent)
		cases.PUT("/:id/students/:slotId/classroom", caseHandler.SetClassroom)
		cases.PUT("/:id/students/:slotId/pension", caseHandler.SetGeneralPension)
		cases.PUT("/:id/students/:slotId/start-month", caseHandler.SetStartMonth)
		cases.PUT("/:id/students/:slotId/months", caseHandler.SetMonthAmount)
		cases.PUT("/:id/students/:slotId/previous-school", caseHandler.SetPreviousSchool)
		cases.PUT("/:id/students/:slotId/fees", caseHandler.SetFees)
		cases.POST("/:id/save", caseHandler.SaveDraft)
		cases.POST("/:id/confirm", caseHandler.Confirm)
		cases.GET("/:id/export", caseHandler.Export)

		api.GET("/classrooms", classroomHandler.List)
		api.GET("/classrooms/:id/capacity", classroomHandler.Capacity)
		api.GET("/families", familyHandler.List)
		api.GET("/families/:id", familyHandler.Get)
		api.GET("/students", studentHandler.List)
		api.GET("/students/:id", studentHandler.Get)
		api.GET("/exports/download", caseHandler.DownloadExport)
		api.GET("/admin/metrics", metricsHandler.Snapshot)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
