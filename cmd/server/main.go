package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safecircle/internal/config"
	"safecircle/internal/handlers"
	"safecircle/internal/middleware"
	"safecircle/internal/repositories/mongodb"
	"safecircle/internal/services"
	"safecircle/pkg/cache"
	"safecircle/pkg/database"
	"safecircle/pkg/logger"
	"safecircle/pkg/maps"
	"safecircle/pkg/push"
	"safecircle/pkg/sms"
	"safecircle/pkg/storage"
	"safecircle/pkg/websocket"
	"safecircle/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// MongoDB
	mongo, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer mongo.Close()

	if err := database.NewMigrator(mongo.Database).Up(); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Redis
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisCache.Close()

	// Repositories
	sosRepo := mongodb.NewSOSRepository(mongo.Database, redisCache)
	sessionRepo := mongodb.NewSessionRepository(mongo.Database, redisCache)
	contactRepo := mongodb.NewContactRepository(mongo.Database)
	callRepo := mongodb.NewCallLogRepository(mongo.Database)

	// Outbound providers
	smsProvider := buildSMSProvider(cfg, log)
	pushProvider := buildPushProvider(cfg, log)
	geocoder := buildGeocoder(cfg, log)
	storageProvider := buildStorageProvider(cfg, log)

	// WebSocket state stream
	wsHandler := websocket.NewHandler(websocket.Options{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
	})

	// Services
	positioning := services.NewRedisPositioning(cfg.Safety, redisCache, wsHandler, log)
	notifier := services.NewNotificationService(cfg.Safety, smsProvider, pushProvider, geocoder, cfg.SMS.Twilio.FromNumber, log)
	callService := services.NewCallService(cfg, callRepo, log)
	sosService := services.NewSOSService(cfg.Safety, sosRepo, contactRepo, positioning, callService, notifier, wsHandler, log)
	sharingService := services.NewSharingService(cfg.Safety, sessionRepo, contactRepo, positioning, notifier, wsHandler, log)
	contactService := services.NewContactService(contactRepo, log)
	mediaService := services.NewMediaService(storageProvider, sosRepo, log)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(log))

	v1 := router.Group("/api/v1")
	routes.Setup(v1, &routes.Handlers{
		SOS:      handlers.NewSOSHandler(sosService, mediaService),
		Sharing:  handlers.NewSharingHandler(sharingService),
		Contacts: handlers.NewContactHandler(contactService),
		Calls:    handlers.NewCallHandler(callService),
		Position: handlers.NewPositionHandler(positioning),
		WS:       wsHandler,
	}, cfg.Security.JWTSecret, middleware.RateLimitMiddleware(redisCache, cfg.Security.RateLimitPerMinute, log))

	router.GET("/health", func(c *gin.Context) {
		if err := mongo.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "degraded",
				"version": cfg.App.Version,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": cfg.App.Version,
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		log.Infof("starting server on port %d", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("forced shutdown: %v", err)
	}
}

func buildSMSProvider(cfg *config.Config, log *logger.Logger) sms.SMSProvider {
	switch cfg.SMS.Provider {
	case "twilio":
		if cfg.SMS.Twilio.AccountSID == "" {
			log.Warn("twilio not configured, sms notifications disabled")
			return nil
		}
		return sms.NewTwilioProvider(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber)
	case "aws_sns":
		provider, err := sms.NewAWSSNSProvider(cfg.SMS.AWS.Region)
		if err != nil {
			log.WithError(err).Warn("aws sns unavailable, sms notifications disabled")
			return nil
		}
		return provider
	default:
		log.Warnf("unknown sms provider %q, sms notifications disabled", cfg.SMS.Provider)
		return nil
	}
}

func buildPushProvider(cfg *config.Config, log *logger.Logger) push.PushProvider {
	switch cfg.Push.Provider {
	case "fcm":
		if cfg.Push.FCM.Credentials == "" {
			log.Warn("fcm not configured, push notifications disabled")
			return nil
		}
		provider, err := push.NewFCMProvider(cfg.Push.FCM.Credentials)
		if err != nil {
			log.WithError(err).Warn("fcm unavailable, push notifications disabled")
			return nil
		}
		return provider
	case "apns":
		provider, err := push.NewAPNSProvider(cfg.Push.APNS.KeyFile, cfg.Push.APNS.KeyID, cfg.Push.APNS.TeamID, cfg.Push.APNS.BundleID, cfg.Push.APNS.Production)
		if err != nil {
			log.WithError(err).Warn("apns unavailable, push notifications disabled")
			return nil
		}
		return provider
	default:
		log.Warnf("unknown push provider %q, push notifications disabled", cfg.Push.Provider)
		return nil
	}
}

func buildGeocoder(cfg *config.Config, log *logger.Logger) maps.Geocoder {
	if cfg.Maps.GoogleMaps.APIKey == "" {
		log.Warn("google maps not configured, alerts will carry raw coordinates")
		return nil
	}

	geocoder, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
	if err != nil {
		log.WithError(err).Warn("google maps unavailable, alerts will carry raw coordinates")
		return nil
	}
	return geocoder
}

func buildStorageProvider(cfg *config.Config, log *logger.Logger) storage.EvidenceStore {
	switch cfg.Storage.Provider {
	case "aws_s3":
		provider, err := storage.NewS3Store(cfg.Storage.AWS.Region, cfg.Storage.AWS.Bucket, cfg.Storage.AWS.CDNDomain)
		if err == nil {
			return provider
		}
		log.WithError(err).Warn("s3 unavailable, falling back to local evidence storage")
	case "gcp":
		provider, err := storage.NewGCSStore(cfg.Storage.GCP.Bucket, cfg.Storage.GCP.CredentialsFile, cfg.Storage.GCP.CDNDomain)
		if err == nil {
			return provider
		}
		log.WithError(err).Warn("gcs unavailable, falling back to local evidence storage")
	}

	provider, err := storage.NewLocalStore(cfg.Storage.Local.BasePath, cfg.Storage.Local.BaseURL)
	if err != nil {
		log.Fatalf("failed to initialize evidence storage: %v", err)
	}
	return provider
}
