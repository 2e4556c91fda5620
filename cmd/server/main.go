package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	integrationapp "github.com/stockup/backend/internal/application/integration"
	notificationapp "github.com/stockup/backend/internal/application/notification"
	stockorderapp "github.com/stockup/backend/internal/application/stockorder"
	notificationdomain "github.com/stockup/backend/internal/domain/notification"
	"github.com/stockup/backend/internal/infrastructure/auth"
	"github.com/stockup/backend/internal/infrastructure/cache"
	"github.com/stockup/backend/internal/infrastructure/config"
	"github.com/stockup/backend/internal/infrastructure/logger"
	"github.com/stockup/backend/internal/infrastructure/msdynamics"
	"github.com/stockup/backend/internal/infrastructure/persistence"
	"github.com/stockup/backend/internal/infrastructure/telemetry"
	"github.com/stockup/backend/internal/infrastructure/vend"
	"github.com/stockup/backend/internal/interfaces/http/handler"
	"github.com/stockup/backend/internal/interfaces/http/middleware"
	"github.com/stockup/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Stockup Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled {
		if err := telemetry.InstrumentGorm(db.DB, telemetry.Config{
			Enabled:     true,
			ServiceName: cfg.Telemetry.ServiceName,
		}, log); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}

	// Initialize repositories
	orderRepo := persistence.NewGormStockOrderRepository(db.DB)
	lineItemRepo := persistence.NewGormLineItemRepository(db.DB)
	credentialRepo := persistence.NewGormCredentialRepository(db.DB)
	pushStatusRepo := persistence.NewGormPushStatusRepository(db.DB)

	// Token refresh lock. Redis keeps concurrent refreshes for the same
	// tenant collapsed to one even across instances; development setups
	// without Redis fall back to a process-local lock.
	var refreshLock cache.RefreshLock
	redisLock, err := cache.NewRedisRefreshLock(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("Redis unavailable, using in-process refresh lock", zap.Error(err))
		refreshLock = cache.NewInMemoryRefreshLock()
	} else {
		refreshLock = redisLock
		log.Info("Redis connected successfully")
	}

	// Provider gateways
	erpClient := msdynamics.NewClient(msdynamics.Config{
		TokenURL:        cfg.MSDynamics.TokenURL,
		ClientID:        cfg.MSDynamics.ClientID,
		ClientSecret:    cfg.MSDynamics.ClientSecret,
		RedirectURI:     cfg.MSDynamics.RedirectURL(cfg.App.BaseURL),
		BatchSize:       cfg.Worker.BatchSize,
		PushConcurrency: cfg.Worker.PushConcurrency,
		RequestTimeout:  cfg.MSDynamics.RequestTimeout,
	}, log)
	posClient := vend.NewClient(vend.Config{
		ClientID:       cfg.Vend.ClientID,
		ClientSecret:   cfg.Vend.ClientSecret,
		RedirectURI:    cfg.Vend.RedirectURL(cfg.App.BaseURL),
		RequestTimeout: cfg.Vend.RequestTimeout,
	}, log)

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	tokenService := integrationapp.NewTokenService(
		credentialRepo, erpClient, posClient, refreshLock, cfg.Worker.RefreshLockTTL, log,
	)
	connectService := integrationapp.NewConnectService(
		credentialRepo, erpClient, posClient,
		integrationapp.ConnectConfig{
			ERPAuthorizeURL: cfg.MSDynamics.AuthorizeURL,
			ERPClientID:     cfg.MSDynamics.ClientID,
			ERPRedirectURI:  cfg.MSDynamics.RedirectURL(cfg.App.BaseURL),
			POSAuthorizeURL: cfg.Vend.AuthorizeURL,
			POSClientID:     cfg.Vend.ClientID,
			POSRedirectURI:  cfg.Vend.RedirectURL(cfg.App.BaseURL),
		}, log,
	)
	orderService := stockorderapp.NewOrderService(orderRepo, lineItemRepo, log)

	// Progress broadcast channel: worker runs report status events back to
	// the session that started them. With a callback URL configured the
	// workers relay over HTTP to the instance holding the live connections;
	// otherwise they deliver through the in-process registry.
	registry := notificationapp.NewConnectionRegistry(log)
	var notifier notificationdomain.StatusNotifier
	if cfg.Worker.StatusCallbackURL != "" {
		notifier = notificationapp.NewHTTPNotifier(
			cfg.Worker.StatusCallbackURL, cfg.Worker.StatusCallbackToken, log,
		)
		log.Info("Worker status events relayed over HTTP",
			zap.String("callback_url", cfg.Worker.StatusCallbackURL))
	} else {
		notifier = notificationapp.NewLocalNotifier(registry, log)
	}

	// Lifecycle workers
	generateWorker := stockorderapp.NewGenerateWorker(
		orderRepo, lineItemRepo, tokenService, erpClient, notifier,
		stockorderapp.GenerateConfig{}, log,
	)
	transferWorker := stockorderapp.NewTransferOrderWorker(
		orderRepo, lineItemRepo, pushStatusRepo, tokenService, erpClient, notifier,
		stockorderapp.TransferConfig{BatchSize: cfg.Worker.BatchSize}, log,
	)
	receiveWorker := stockorderapp.NewReceiveWorker(
		orderRepo, lineItemRepo, tokenService, posClient, notifier,
		stockorderapp.ReceiveConfig{Concurrency: cfg.Worker.ReceiveConcurrency}, log,
	)

	// HTTP handlers
	systemHandler := handler.NewSystemHandler(db.DB)
	connectHandler := handler.NewConnectHandler(connectService, cfg.App.AdminURL, log)
	stockOrderHandler := handler.NewStockOrderHandler(
		orderService, generateWorker, transferWorker, receiveWorker, log,
	)
	progressHandler := handler.NewProgressHandler(registry, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. JWT - Authenticate API requests
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.Telemetry.Enabled {
		engine.Use(telemetry.GinMiddleware(telemetry.Config{
			Enabled:     true,
			ServiceName: cfg.Telemetry.ServiceName,
		}))
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// JWT authentication. The default skip list leaves the health endpoints
	// and the OAuth callbacks open; everything else under /api/v1 requires
	// a bearer token.
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(systemHandler).
		Register(connectHandler).
		Register(stockOrderHandler).
		Register(progressHandler)
	r.Setup()

	// Create HTTP server with config. WriteTimeout must outlast the SSE
	// stream, so the stream endpoint relies on heartbeats rather than the
	// server deadline; an idle consumer is disconnected by its own proxy.
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   0,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
