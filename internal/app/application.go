package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"voltage-backend/internal/attempts"
	"voltage-backend/internal/authorization"
	"voltage-backend/internal/background"
	"voltage-backend/internal/config"
	"voltage-backend/internal/database"
	"voltage-backend/internal/handlers"
	"voltage-backend/internal/middleware"
	"voltage-backend/internal/repository"
	"voltage-backend/internal/service"
	"voltage-backend/pkg/cache"
	"voltage-backend/pkg/logger"
)

type Application struct {
	cfg *config.Config

	db    *gorm.DB
	cache *cache.Cache
	store repository.Store

	scheduler   *background.Scheduler
	periodic    *background.Periodic
	rateLimiter *middleware.RateLimitManager

	services serviceContainer
	handlers handlerContainer

	router *gin.Engine
	server *http.Server
}

type serviceContainer struct {
	Auth       *service.AuthService
	Catalog    *service.CatalogService
	Enrollment *service.EnrollmentService
	Quiz       *service.QuizService
	Payment    *service.PaymentService
	Activation *service.ActivationService
	Durations  *service.DurationService
}

type handlerContainer struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Catalog    *handlers.CatalogHandler
	Quiz       *handlers.QuizHandler
	Payment    *handlers.PaymentHandler
	Activation *handlers.ActivationHandler
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{cfg: cfg}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(); err != nil {
		return nil, err
	}

	app.store = repository.NewStore(app.db)
	app.scheduler = background.NewScheduler(background.SchedulerConfig{WorkerCount: cfg.BackgroundWorkers})
	app.rateLimiter = middleware.NewRateLimitManager(context.Background())

	app.initServices()
	app.initHandlers()

	if err := app.initPeriodicJobs(); err != nil {
		return nil, err
	}

	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

// Run starts background processing and blocks serving HTTP.
func (a *Application) Run() error {
	a.scheduler.Start(context.Background())
	a.periodic.Start()

	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
	})

	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.periodic != nil {
		if err := a.periodic.Stop(ctx); err != nil {
			logger.Error(err, "Failed to stop periodic jobs", nil)
		}
	}
	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(ctx); err != nil {
			logger.Error(err, "Background jobs did not drain before shutdown", nil)
		}
	}
	if a.rateLimiter != nil {
		_ = a.rateLimiter.Shutdown()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Error(err, "Failed to close database connection", nil)
			}
		}
	}

	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	db, err := database.Open(a.cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.db = db
	return nil
}

func (a *Application) initCache() error {
	c, err := cache.NewCache(a.cfg.RedisURL, a.cfg.EnableRedis)
	if err != nil {
		return err
	}
	a.cache = c
	logger.Info("Cache initialised", map[string]interface{}{"enabled": c.Enabled()})
	return nil
}

func (a *Application) attemptClock() service.AttemptClock {
	if a.cache.Enabled() {
		return attempts.NewRedisClock(a.cache, a.cfg.AttemptClockTTL)
	}
	logger.Warn("Redis disabled, quiz attempt clock is process local", nil)
	return attempts.NewMemoryClock(a.cfg.AttemptClockTTL)
}

func (a *Application) chapterCache() service.ChapterCache {
	if !a.cache.Enabled() {
		return nil
	}
	return service.NewRedisChapterCache(a.cache)
}

func (a *Application) initServices() {
	durations := service.NewDurationService(
		a.store,
		service.NewYouTubeResolver(a.cfg.YouTubeAPIKey),
		service.NewLocalFileResolver(a.cfg.UploadDir),
	)

	a.services = serviceContainer{
		Auth:       service.NewAuthService(a.store, a.cfg.JWTSecret, a.cfg.TokenLifetime),
		Catalog:    service.NewCatalogService(a.store, a.chapterCache(), durations, a.scheduler),
		Enrollment: service.NewEnrollmentService(a.store),
		Quiz:       service.NewQuizService(a.store, a.attemptClock()),
		Payment: service.NewPaymentService(a.store, service.PaymentConfig{
			Currency:        a.cfg.Currency,
			OrderTTL:        a.cfg.PaymentOrderTTL,
			ReferenceDigits: a.cfg.ReferenceCodeDigits,
		}),
		Activation: service.NewActivationService(a.store),
		Durations:  durations,
	}
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Health:     handlers.NewHealthHandler(a.db),
		Auth:       handlers.NewAuthHandler(a.services.Auth),
		Catalog:    handlers.NewCatalogHandler(a.services.Catalog, a.services.Enrollment),
		Quiz:       handlers.NewQuizHandler(a.services.Quiz),
		Payment:    handlers.NewPaymentHandler(a.services.Payment),
		Activation: handlers.NewActivationHandler(a.services.Activation),
	}
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.WithRateLimitManager(a.rateLimiter))
	router.Use(middleware.RateLimitMiddleware(a.cfg))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.handlers.Health.Health)
	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	router.Static("/uploads", a.cfg.UploadDir)

	auth := middleware.AuthMiddleware(a.cfg.JWTSecret)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("")
		{
			public.POST("/register", a.handlers.Auth.Register)
			public.POST("/login", a.handlers.Auth.Login)

			public.GET("/chapters", a.handlers.Catalog.ListChapters)
			public.GET("/chapters/:id/lectures", middleware.OptionalAuthMiddleware(a.cfg.JWTSecret), a.handlers.Catalog.ListLectures)
		}

		protected := v1.Group("")
		protected.Use(auth)
		{
			protected.GET("/profile", a.handlers.Auth.Profile)
			protected.GET("/dashboard", a.handlers.Catalog.Dashboard)

			protected.GET("/lectures/:id", a.handlers.Catalog.LectureDetail)
			protected.POST("/lectures/:id/progress", a.handlers.Catalog.UpdateProgress)

			protected.GET("/quizzes/:id", a.handlers.Quiz.Intro)
			protected.POST("/quizzes/:id/start", a.handlers.Quiz.Start)
			protected.POST("/quizzes/:id/submit", a.handlers.Quiz.Submit)
			protected.GET("/results", a.handlers.Quiz.ListResults)
			protected.GET("/results/:id", a.handlers.Quiz.ViewResult)

			protected.POST("/payments/orders", a.handlers.Payment.CreateOrder)
			protected.GET("/payments/orders", a.handlers.Payment.ListOrders)
			protected.GET("/payments/orders/:reference", a.handlers.Payment.Status)

			protected.POST("/activation/redeem",
				middleware.RedemptionRateLimitMiddleware(a.cfg.RedeemAttempts, a.cfg.RedeemWindow),
				a.handlers.Activation.Redeem,
			)
		}

		admin := v1.Group("/admin")
		admin.Use(auth)
		{
			catalog := admin.Group("", middleware.RequirePermission(authorization.PermissionManageCatalog))
			catalog.POST("/chapters", a.handlers.Catalog.CreateChapter)
			catalog.POST("/lectures", a.handlers.Catalog.CreateLecture)

			quizzes := admin.Group("", middleware.RequirePermission(authorization.PermissionManageQuizzes))
			quizzes.POST("/quizzes", a.handlers.Quiz.CreateQuiz)

			payments := admin.Group("/payments", middleware.RequirePermission(authorization.PermissionConfirmPayment))
			payments.GET("/orders", a.handlers.Payment.ListByStatus)
			payments.POST("/orders/:id/confirm", a.handlers.Payment.Confirm)
			payments.POST("/orders/:id/expire", a.handlers.Payment.Expire)
			payments.POST("/orders/:id/fail", a.handlers.Payment.Fail)

			wallet := admin.Group("", middleware.RequirePermission(authorization.PermissionManageWallet))
			wallet.PUT("/payments/wallet", a.handlers.Payment.SetWallet)

			codes := admin.Group("", middleware.RequirePermission(authorization.PermissionIssueCodes))
			codes.POST("/activation-codes", a.handlers.Activation.Generate)
			codes.GET("/lectures/:id/activation-codes", a.handlers.Activation.ListCodes)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "route not found", "path": c.Request.URL.Path})
			return
		}
		c.Status(http.StatusNotFound)
	})

	a.router = router
}
