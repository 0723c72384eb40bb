package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/config"
	"github.com/slotbook/booking-engine/internal/database"
	"github.com/slotbook/booking-engine/internal/handlers"
	"github.com/slotbook/booking-engine/internal/middleware"
	"github.com/slotbook/booking-engine/internal/services"
	"github.com/slotbook/booking-engine/pkg/jwt"
	"github.com/slotbook/booking-engine/pkg/mq"
	"github.com/slotbook/booking-engine/pkg/obs"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting booking engine API")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	shutdownTracer, err := obs.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Server.Environment)
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled")
		shutdownTracer = obs.Noop
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.WithField("driver", cfg.Database.Driver).Info("Database connection established")

	// ========================================================================
	// REPOSITORIES
	// ========================================================================
	bookingRepo := database.NewBookingRepository(db.DB)
	paymentRepo := database.NewPaymentRepository(db.DB)
	sessionTypeRepo := database.NewSessionTypeRepository(db.DB)
	customerRepo := database.NewCustomerRepository(db.DB)
	blockedSlotRepo := database.NewBlockedSlotRepository(db.DB)
	businessUserRepo := database.NewBusinessUserRepository(db.DB)
	auditRepo := database.NewBookingAuditRepository(db.DB, logger)

	// ========================================================================
	// INFRASTRUCTURE
	// ========================================================================
	var dedup services.EventDeduplicator = services.NopDeduplicator{}
	redisClient := newRedisClient(cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
		dedup = services.NewRedisDeduplicator(redisClient, cfg.Redis.WebhookDedupTTL)
	}
	dispatcher, closeDispatcher := newDispatcher(cfg.Messaging, logger)
	defer closeDispatcher()

	var gateway *services.OmiseGateway
	if cfg.Payment.Enabled {
		gateway, err = services.NewOmiseGateway(cfg.Payment, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize payment gateway: %v", err)
		}
		logger.WithField("source_type", cfg.Payment.SourceType).Info("Omise gateway initialized")
	} else {
		logger.Warn("Payments disabled - bookings are confirmed without checkout")
	}

	// ========================================================================
	// SERVICES
	// ========================================================================
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	lifecycle := services.NewBookingLifecycle()
	fees := services.NewFeeCalculator(cfg.Payment.PlatformFeePercentage)
	checker := services.NewSlotConflictChecker(blockedSlotRepo, bookingRepo)
	auditService := services.NewAuditService(auditRepo, logger, cfg.Security.EnableAuditLog)
	confirmations := services.NewConfirmationSender(bookingRepo, dispatcher, auditService, logger)

	deps := services.AdmissionDeps{
		SessionTypes:    sessionTypeRepo,
		Customers:       customerRepo,
		Bookings:        bookingRepo,
		Checker:         checker,
		Fees:            fees,
		Lifecycle:       lifecycle,
		Confirmations:   confirmations,
		Audit:           auditService,
		Logger:          logger,
		PaymentsEnabled: gateway != nil,
		DefaultCurrency: cfg.Payment.DefaultCurrency,
	}
	if gateway != nil {
		deps.Gateway = gateway
	}
	admissionService := services.NewBookingAdmissionService(deps)
	reconciler := services.NewPaymentReconciler(bookingRepo, paymentRepo, lifecycle, fees, confirmations, dedup, auditService, logger)
	bookingService := services.NewBookingService(bookingRepo, paymentRepo, lifecycle, auditService, logger)
	authService := services.NewAuthService(businessUserRepo, jwtService, logger)

	// Throttling needs a shared counter; without Redis the routes stay open
	throttle := func(string) gin.HandlerFunc { return func(c *gin.Context) { c.Next() } }
	if redisClient != nil && cfg.RateLimit.Enabled {
		limiter := services.NewRateLimitService(services.NewRedisRateCounter(redisClient), cfg.RateLimit)
		throttle = func(scope string) gin.HandlerFunc { return middleware.RateLimit(limiter, scope, logger) }
		logger.Info("✓ Rate limits enabled for login and public bookings")
	}

	// Pending payment sweep only makes sense with a gateway to poll
	var cronService *services.CronService
	if gateway != nil {
		sweeper := services.NewPaymentSweeper(paymentRepo, gateway, reconciler, cfg.Payment.SweepAfter, logger)
		cronService = services.NewCronService(sweeper, cfg.Payment.SweepSchedule, logger)
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
		logger.Info("✓ Cron service started - pending payment sweep enabled")
	}

	// ========================================================================
	// HANDLERS
	// ========================================================================
	if err := handlers.RegisterValidators(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	authHandler := handlers.NewAuthHandler(authService, logger)
	bookingHandler := handlers.NewBookingHandler(admissionService, bookingService, logger)
	blockedSlotHandler := handlers.NewBlockedSlotHandler(blockedSlotRepo, logger)
	var verifier handlers.EventVerifier
	if gateway != nil {
		verifier = gateway
	}
	paymentHandler := handlers.NewPaymentHandler(verifier, reconciler, cfg.Payment, logger)
	var sweepRunner handlers.SweepRunner
	if cronService != nil {
		sweepRunner = cronService
	}
	sweepHandler := handlers.NewPaymentSweepHandler(sweepRunner, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", throttle(services.RateScopeLogin), authHandler.Login)
		}

		public := v1.Group("/public")
		{
			public.POST("/tenants/:tenant_id/bookings", throttle(services.RateScopeBooking), bookingHandler.CreatePublicBooking)
			public.GET("/bookings/:booking_id", bookingHandler.GetPublicBooking)
		}

		payments := v1.Group("/payments")
		{
			payments.GET("/config", paymentHandler.GetConfig)
			payments.POST("/webhook", paymentHandler.Webhook)
		}

		business := v1.Group("/business")
		business.Use(middleware.AuthMiddleware(jwtService, logger))
		business.Use(middleware.RequireBusiness())
		{
			business.GET("/bookings", bookingHandler.ListBookings)
			business.POST("/bookings", bookingHandler.CreateBusinessBooking)
			business.GET("/bookings/:booking_id", bookingHandler.GetBooking)
			business.POST("/bookings/:booking_id/cancel", bookingHandler.CancelBooking)
			business.GET("/bookings/:booking_id/payment", bookingHandler.GetPaymentStatus)

			business.POST("/payments/sweep", sweepHandler.RunSweep)
			business.GET("/payments/sweep", sweepHandler.SweepStatus)

			business.GET("/blocked-slots", blockedSlotHandler.List)
			business.POST("/blocked-slots", blockedSlotHandler.Create)
			business.DELETE("/blocked-slots/:slot_id", blockedSlotHandler.Delete)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cronService != nil {
		logger.Info("Stopping cron service...")
		cronService.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		logger.WithError(err).Warn("Tracer shutdown failed")
	}

	logger.Info("Server exited successfully")
}

// newRedisClient connects to Redis when configured. A nil client means the
// dedup cache and rate limits are off and the database guard does the work.
func newRedisClient(cfg config.RedisConfig, logger *logrus.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("REDIS_URL not set - webhook dedup cache and rate limits disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable - webhook dedup cache and rate limits disabled")
		_ = client.Close()
		return nil
	}

	logger.WithField("addr", cfg.Addr).Info("Redis connected")
	return client
}

// newDispatcher publishes confirmations to RabbitMQ, falling back to the log
func newDispatcher(cfg config.MessagingConfig, logger *logrus.Logger) (services.NotificationDispatcher, func()) {
	if cfg.URL == "" {
		logger.Info("RABBITMQ_URL not set - confirmations go to the log")
		return services.NewLogDispatcher(logger), func() {}
	}

	publisher, err := mq.NewPublisher(cfg.URL, cfg.NotifyExchange)
	if err != nil {
		logger.WithError(err).Warn("RabbitMQ unreachable - confirmations go to the log")
		return services.NewLogDispatcher(logger), func() {}
	}

	logger.WithField("exchange", cfg.NotifyExchange).Info("RabbitMQ publisher connected")
	return services.NewMQDispatcher(publisher), func() {
		if err := publisher.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close RabbitMQ publisher")
		}
	}
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		// Add user context if available
		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
			fields["tenant_id"] = userCtx.TenantID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
