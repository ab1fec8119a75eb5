package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"silent-auction/internal/api/handlers"
	"silent-auction/internal/config"
	"silent-auction/internal/infrastructure/identity"
	"silent-auction/internal/infrastructure/leader"
	"silent-auction/internal/infrastructure/mysql"
	"silent-auction/internal/infrastructure/redis"
	ws "silent-auction/internal/infrastructure/websocket"
	"silent-auction/internal/services"
	"silent-auction/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting Silent Auction Engine")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}(db)

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	// Test MySQL connection
	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Initialize repositories
	settingsRepo := mysql.NewSettingsRepository(db)
	itemRepo := mysql.NewItemRepository(db)
	bidRepo := mysql.NewBidRepository(db)

	// Initialize Redis based components
	throttle := redis.NewOutbidThrottle(rdb, cfg.Bidding.OutbidThrottle)
	eventPublisher := redis.NewEventPublisher(rdb, cfg.Notify.EventChan)
	eventSubscriber := redis.NewEventSubscriber(rdb, cfg.Notify.EventChan, log)
	dispatcher := redis.NewNotificationPublisher(rdb, cfg.Notify.Channel, cfg.Notify.AdminEmails)

	// Identity provider for bidder token verification
	identityProvider := identity.NewHTTPProvider(cfg.Identity.BaseURL, cfg.Identity.Timeout)

	// Initialize leader election
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL, log)

	// Background queue for bid-time side effects
	queue := services.NewDispatchQueue(cfg.Notify.QueueSize, cfg.Notify.Workers, cfg.Notify.TaskTimeout, log)
	queue.Start()

	// Core services
	policy := services.NewBidPolicy(cfg.Bidding.IncrementCents)
	admission := services.NewAdmissionService(
		settingsRepo,
		itemRepo,
		bidRepo,
		identityProvider,
		policy,
		dispatcher,
		throttle,
		eventPublisher,
		queue,
		log,
	)
	closer := services.NewCloser(settingsRepo, itemRepo, bidRepo, dispatcher, log)
	scheduler := services.NewCloseScheduler(closer, leaderElection, cfg.Instance.ID, cfg.Closer.Schedule, log)

	// Live price feed
	connManager := ws.NewConnectionManager(log)
	broadcaster := ws.NewBroadcaster(eventSubscriber, connManager, log)

	broadcastCtx, stopBroadcast := context.WithCancel(context.Background())
	defer stopBroadcast()
	go func() {
		if err := broadcaster.Run(broadcastCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Price broadcaster stopped", "error", err)
		}
	}()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestedWith,
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Initialize handlers
	bidHandler := handlers.NewBidHandler(admission, admission, log)
	itemHandler := handlers.NewItemHandler(admission, log)
	liveHandler := handlers.NewLiveHandler(itemRepo, connManager, log)

	// API routes
	api := e.Group("/api/v1")
	api.POST("/bids", bidHandler.PlaceBid)
	api.GET("/items", itemHandler.List)
	api.GET("/items/:ref", itemHandler.Detail)
	api.GET("/items/:ref/live", liveHandler.Stream)

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-engine",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Internal admin listener: auction close, item and settings management.
	adminHandler := handlers.NewAdminHandler(closer, itemRepo, settingsRepo, log)
	adminRouter := mux.NewRouter()
	adminHandler.Register(adminRouter)
	adminServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Admin.Host, cfg.Admin.Port),
		Handler: adminRouter,
	}
	go func() {
		log.Info("Starting admin server", "address", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Admin server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Start scheduled close checks
	if err := scheduler.Start(context.Background()); err != nil {
		log.Error("Failed to start close scheduler", "error", err)
		os.Exit(1)
	}

	// Try to become leader
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became close-scheduler leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	// Start server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting auction engine server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction engine...")

	// Graceful shutdown
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop scheduler", "error", err)
	}
	if err := adminServer.Shutdown(ctx); err != nil {
		log.Error("Admin server forced to shutdown", "error", err)
	}
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// HTTP servers are drained; no request can submit side effects anymore.
	stopBroadcast()
	queue.Stop()
	if err := leaderElection.ReleaseLeadership(ctx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}

	log.Info("Auction engine stopped")
}
