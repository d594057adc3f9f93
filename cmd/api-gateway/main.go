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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/alumni-portal-api/api/swagger"
	"github.com/noah-isme/alumni-portal-api/internal/bot"
	"github.com/noah-isme/alumni-portal-api/internal/handler"
	"github.com/noah-isme/alumni-portal-api/internal/middleware"
	"github.com/noah-isme/alumni-portal-api/internal/models"
	"github.com/noah-isme/alumni-portal-api/internal/repository"
	"github.com/noah-isme/alumni-portal-api/internal/service"
	"github.com/noah-isme/alumni-portal-api/pkg/cache"
	"github.com/noah-isme/alumni-portal-api/pkg/config"
	"github.com/noah-isme/alumni-portal-api/pkg/database"
	"github.com/noah-isme/alumni-portal-api/pkg/jobs"
	"github.com/noah-isme/alumni-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/alumni-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/alumni-portal-api/pkg/middleware/requestid"
)

// @title Alumni Portal API
// @version 1.0.0
// @description Backend for the school alumni portal
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The portal works without redis, just slower on the catalog and
		// directory endpoints.
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	courseRequestRepo := repository.NewCourseRequestRepository(db)
	passRequestRepo := repository.NewPassRequestRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	catalogCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, redisClient != nil)
	directoryCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Directory.CacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, directoryCache, cfg.Directory.CacheTTL, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, catalogCache, cfg.Catalog.CacheTTL, nil, logr)

	notificationSvc := service.NewNotificationService(userRepo, nil, metricsSvc, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)

	courseRequestSvc := service.NewCourseRequestService(courseRequestRepo, courseRepo, notificationSvc, nil, logr)
	passRequestSvc := service.NewPassRequestService(passRequestRepo, notificationSvc, nil, logr)
	donationSvc := service.NewDonationService(donationRepo, nil, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var portalBot *bot.Bot
	if cfg.Bot.Enabled {
		portalBot, err = bot.New(bot.Config{
			Token:       cfg.Bot.Token,
			PollTimeout: cfg.Bot.PollTimeout,
		}, userRepo, userSvc, authSvc, courseSvc, courseRequestSvc, passRequestSvc, logr)
		if err != nil {
			logr.Fatal("failed to start telegram bot", zap.Error(err))
		}
		notificationSvc.SetSender(portalBot)
		go portalBot.Run(rootCtx)
	}

	notificationSvc.Start(rootCtx)
	defer notificationSvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	courseRequestHandler := handler.NewCourseRequestHandler(courseRequestSvc)
	passRequestHandler := handler.NewPassRequestHandler(passRequestSvc)
	donationHandler := handler.NewDonationHandler(donationSvc)
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

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/verify", authHandler.RequestVerification)
		auth.POST("/verify/confirm", authHandler.ConfirmVerification)
		auth.POST("/forgot-password", authHandler.ForgotPassword)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.PUT("/password", authHandler.ChangePassword)
		authed.POST("/register-admin", middleware.RequireRoles(models.RoleAdmin), authHandler.RegisterAdmin)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("/me", userHandler.Me)
		users.PUT("/me", userHandler.UpdateMe)
		users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.ListDirectory)
		users.GET("/export", middleware.RequireRoles(models.RoleAdmin), userHandler.ExportDirectory)
		users.GET("/:id", middleware.RBAC("ADMIN", "SELF"), userHandler.Get)
	}

	courses := api.Group("/courses", middleware.JWT(authSvc))
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)

		manage := courses.Group("", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(userRepo, "COURSE_MANAGE", "course"))
		manage.POST("", courseHandler.Create)
		manage.POST("/batch", courseHandler.CreateBatch)
		manage.PUT("/:id", courseHandler.Update)
		manage.DELETE("/:id", courseHandler.Delete)
	}

	courseRequests := api.Group("/course-requests", middleware.JWT(authSvc))
	{
		courseRequests.GET("", courseRequestHandler.List)
		courseRequests.POST("", courseRequestHandler.Create)
		courseRequests.DELETE("/resolved", courseRequestHandler.PurgeResolved)
		courseRequests.GET("/:id", courseRequestHandler.Get)
		courseRequests.DELETE("/:id", courseRequestHandler.Delete)
		courseRequests.PUT("/:id/resolve",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(userRepo, "REQUEST_RESOLVE", "course_request"),
			courseRequestHandler.Resolve)
	}

	passRequests := api.Group("/pass-requests", middleware.JWT(authSvc))
	{
		passRequests.GET("", passRequestHandler.List)
		passRequests.POST("", passRequestHandler.Create)
		passRequests.DELETE("/resolved", passRequestHandler.PurgeResolved)
		passRequests.GET("/:id", passRequestHandler.Get)
		passRequests.DELETE("/:id", passRequestHandler.Delete)
		passRequests.PUT("/:id/resolve",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(userRepo, "REQUEST_RESOLVE", "pass_request"),
			passRequestHandler.Resolve)
	}

	donations := api.Group("/donations", middleware.JWT(authSvc))
	{
		donations.GET("", donationHandler.List)
		donations.POST("", donationHandler.Create)
		donations.GET("/banner", donationHandler.Banner)
		donations.PUT("/banner", middleware.RequireRoles(models.RoleAdmin), donationHandler.SetBanner)
		donations.GET("/export", middleware.RequireRoles(models.RoleAdmin), donationHandler.Export)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("forced shutdown", zap.Error(err))
	}
}
