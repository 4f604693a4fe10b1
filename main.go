package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"findr-server/internal/config"
	"findr-server/internal/database"
	"findr-server/internal/handlers"
	"findr-server/internal/metrics"
	"findr-server/internal/middleware"
	"findr-server/internal/redis"
	"findr-server/internal/services"
	"findr-server/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	cfg := config.Load()
	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	events := redisClient.Subscribe(ctx, services.EventsChannel)
	defer events.Close()
	go hub.Listen(ctx, events.Channel())

	var push services.PushSender
	if cfg.FirebaseProjectID != "" {
		client, err := services.NewFirebaseMessaging(ctx, cfg)
		if err != nil {
			logrus.WithError(err).Warn("Push notifications disabled")
		} else {
			push = client
		}
	}

	var store services.ObjectStore
	if cfg.StorageEnabled() {
		storage, err := services.NewStorageService(cfg)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize object storage")
		}
		if err := storage.EnsureBucket(ctx); err != nil {
			logrus.WithError(err).Warn("Could not ensure avatar bucket")
		}
		store = storage
	}

	notifier := services.NewNotifier(db, redisClient, push)
	github := services.NewGitHubClient(cfg.GitHubAPIURL, cfg.GitHubToken)

	profileService := services.NewProfileService(db, cfg, redisClient, github, store)
	discovery := services.NewDiscoverySelector(db, cfg.DiscoverDefaultLimit, cfg.DiscoverMaxLimit)
	resolver := services.NewMatchResolver(db, services.NewSwipeLedger(), notifier)
	directory := services.NewMatchDirectory(db)

	profileHandler := handlers.NewProfileHandler(profileService, discovery, notifier)
	matchHandler := handlers.NewMatchHandler(resolver, directory)

	router := setupRoutes(cfg, profileHandler, matchHandler, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logrus.Infof("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.GinMode == gin.ReleaseMode {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func setupRoutes(cfg *config.Config, profileHandler *handlers.ProfileHandler,
	matchHandler *handlers.MatchHandler, hub *websocket.Hub) *gin.Engine {

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), metrics.Middleware())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		findr := v1.Group("/findr")
		{
			findr.GET("/profile", profileHandler.GetMyProfile)
			findr.PUT("/profile", profileHandler.UpsertProfile)
			findr.PUT("/profile/active", profileHandler.SetActive)
			findr.POST("/profile/ping", profileHandler.Ping)
			findr.POST("/profile/github/refresh", profileHandler.RefreshGitHub)
			findr.POST("/profile/avatar", profileHandler.UploadAvatar)
			findr.GET("/profiles/:user_id", profileHandler.GetProfile)
			findr.POST("/devices", profileHandler.RegisterDevice)

			findr.GET("/discover", profileHandler.Discover)

			findr.POST("/swipes", matchHandler.Swipe)
			findr.GET("/matches", matchHandler.GetMatches)
			findr.DELETE("/matches/:match_id", matchHandler.Unmatch)
		}

		v1.GET("/ws", func(c *gin.Context) {
			websocket.HandleWebSocket(hub, c)
		})
	}

	return router
}
