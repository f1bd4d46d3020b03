package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/dens-health/casetrack-api/api/swagger"
	"github.com/dens-health/casetrack-api/internal/handler"
	"github.com/dens-health/casetrack-api/internal/middleware"
	"github.com/dens-health/casetrack-api/internal/models"
	"github.com/dens-health/casetrack-api/internal/repository"
	"github.com/dens-health/casetrack-api/internal/service"
	"github.com/dens-health/casetrack-api/pkg/cache"
	"github.com/dens-health/casetrack-api/pkg/config"
	"github.com/dens-health/casetrack-api/pkg/database"
	"github.com/dens-health/casetrack-api/pkg/logger"
	corsmiddleware "github.com/dens-health/casetrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/dens-health/casetrack-api/pkg/middleware/requestid"
)

// @title CaseTrack API
// @version 1.0.0
// @description Dental lab case tracking between clinic and external labs
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional; the dashboard simply runs uncached without it.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	caseRepo := repository.NewCaseRepository(db)
	labRepo := repository.NewLabRepository(db)
	eventRepo := repository.NewEventRepository(db)
	userRepo := repository.NewUserRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	credentialSvc := service.NewCredentialService(labRepo, settingsRepo, logr, cfg.Pins)
	caseSvc := service.NewCaseService(caseRepo, labRepo, eventRepo, cacheSvc, validate, logr)
	statusSvc := service.NewStatusService(caseRepo, credentialSvc, metricsSvc, validate, logr)
	labSvc := service.NewLabService(labRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, labRepo, validate, logr)
	commentSvc := service.NewCommentService(commentRepo, caseSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(caseRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})
	labelSvc := service.NewLabelService(caseSvc, cfg.Public.BaseURL, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	caseHandler := handler.NewCaseHandler(caseSvc, statusSvc, commentSvc, labelSvc)
	publicHandler := handler.NewPublicHandler(statusSvc)
	labHandler := handler.NewLabHandler(labSvc, credentialSvc)
	settingsHandler := handler.NewSettingsHandler(credentialSvc)
	userHandler := handler.NewUserHandler(userSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
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

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	public := api.Group("/public")
	{
		public.GET("/:token", publicHandler.View)
		public.POST("/:token/transition", publicHandler.Transition)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/me", authHandler.Me)

		cases := authed.Group("/cases")
		{
			cases.GET("", caseHandler.List)
			cases.GET("/:id", caseHandler.Get)
			cases.GET("/code/:code", caseHandler.GetByCode)
			cases.POST("/:id/transition", caseHandler.Transition)
			cases.GET("/:id/events", caseHandler.Events)
			cases.GET("/:id/comments", caseHandler.ListComments)
			cases.POST("/:id/comments", caseHandler.AddComment)
			cases.GET("/:id/qr.png", caseHandler.QRCode)
			cases.GET("/:id/label.pdf", caseHandler.Label)

			clinicOnly := cases.Group("")
			clinicOnly.Use(middleware.RequireRoles(models.RoleClinic))
			{
				clinicOnly.POST("", caseHandler.Create)
				clinicOnly.PUT("/:id", caseHandler.Update)
				clinicOnly.DELETE("/:id", caseHandler.Delete)
			}
		}

		clinic := authed.Group("")
		clinic.Use(middleware.RequireRoles(models.RoleClinic))
		{
			clinic.GET("/labs", labHandler.List)
			clinic.GET("/labs/:id", labHandler.Get)
			clinic.POST("/labs", labHandler.Create)
			clinic.PUT("/labs/:id", labHandler.Update)
			clinic.DELETE("/labs/:id", labHandler.Delete)
			clinic.PUT("/labs/:id/pin", labHandler.SetPIN)

			clinic.PUT("/settings/clinic-pin", settingsHandler.SetClinicPIN)

			clinic.GET("/users", userHandler.List)
			clinic.POST("/users", userHandler.Create)
			clinic.PUT("/users/:id", userHandler.Update)

			if cfg.Dashboard.Enabled {
				clinic.GET("/dashboard/summary", dashboardHandler.Summary)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
