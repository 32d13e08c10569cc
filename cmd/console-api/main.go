package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"clearstack/admin-console/admin-console-backend/internal/billing"
	"clearstack/admin-console/admin-console-backend/internal/branding"
	"clearstack/admin-console/admin-console-backend/internal/config"
	"clearstack/admin-console/admin-console-backend/internal/flags"
	"clearstack/admin-console/admin-console-backend/internal/monitoring"
	"clearstack/admin-console/admin-console-backend/internal/notifications"
	"clearstack/admin-console/admin-console-backend/internal/onboarding"
	"clearstack/admin-console/admin-console-backend/internal/realtime"
	"clearstack/admin-console/admin-console-backend/internal/tenants"
	"clearstack/admin-console/admin-console-backend/pkg/storage"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	logger.Info("Connecting to database",
		zap.String("host", cfg.Database.Host),
		zap.String("db", cfg.Database.DBName))
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	// gorm shares the same connection pool for the gorm-backed modules
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Realtime change feed
	hub := realtime.NewHub(cfg.Realtime.ClientSendBuffer, logger)
	feed, err := realtime.NewFeed(dbURL, cfg.Realtime.NotifyChannel,
		cfg.Realtime.MinReconnect, cfg.Realtime.MaxReconnect, hub, logger)
	if err != nil {
		logger.Fatal("Failed to start change feed", zap.Error(err))
	}
	go feed.Run(ctx)

	// Branding asset storage
	assets, err := storage.NewAssetClient(ctx, storage.Options{
		Region:        cfg.Storage.Region,
		Bucket:        cfg.Storage.AssetBucket,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize asset storage", zap.Error(err))
	}

	// Notification sink
	notifier, err := notifications.NewService(gormDB, hub, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifications", zap.Error(err))
	}

	// Domain modules
	tenantsService := tenants.NewService(tenants.NewRepository(db), logger)
	tenantsHandler := tenants.NewHandler(tenantsService, logger)

	onboardingService := onboarding.NewService(onboarding.NewStore(db), notifier, logger)
	onboardingHandler := onboarding.NewHandler(onboardingService, logger)

	billingService := billing.NewService(billing.NewRepository(db), logger)
	billingHandler := billing.NewHandler(billingService, logger)

	flagsService, err := flags.NewService(gormDB, logger)
	if err != nil {
		logger.Fatal("Failed to initialize flags", zap.Error(err))
	}
	flagsHandler := flags.NewHandler(flagsService, logger)

	brandingService := branding.NewService(branding.NewRepository(db), assets, logger)
	brandingHandler := branding.NewHandler(brandingService, logger)

	cache := monitoring.NewSnapshotCache(cfg.Monitoring.CacheTTL)
	defer cache.Stop()
	aggregator := monitoring.NewAggregator(monitoring.NewSnapshotStore(db), cache, logger)
	monitoringHandler := monitoring.NewHandler(aggregator, logger)

	// Change events only invalidate caches; refetch happens on demand
	feed.OnEvent(func(event realtime.Event) {
		aggregator.InvalidateForTable(event.Table)
	})

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	{
		tenantsHandler.RegisterRoutes(api)
		onboardingHandler.RegisterRoutes(api)
		billingHandler.RegisterRoutes(api)
		flagsHandler.RegisterRoutes(api)
		brandingHandler.RegisterRoutes(api)
		monitoringHandler.RegisterRoutes(api)

		api.GET("/tenants/:id/notifications", func(c *gin.Context) {
			tenantID, err := uuid.Parse(c.Param("id"))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
				return
			}
			list, err := notifier.ListRecent(c.Request.Context(), tenantID, 50)
			if err != nil {
				logger.Error("failed to list notifications", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"notifications": list})
		})

		api.GET("/realtime", func(c *gin.Context) {
			if err := hub.HandleConnection(c.Writer, c.Request); err != nil {
				logger.Warn("websocket upgrade failed", zap.Error(err))
			}
		})
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
