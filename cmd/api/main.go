package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"tenant-inbox/config"
	"tenant-inbox/internal/events"
	"tenant-inbox/internal/handler"
	"tenant-inbox/internal/proxy"
	"tenant-inbox/internal/redis"
	"tenant-inbox/internal/repository"
	"tenant-inbox/internal/server"
	"tenant-inbox/internal/services"
	"tenant-inbox/internal/storage"
	"tenant-inbox/pkg/database"
	"tenant-inbox/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := repository.InitSchema(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	store, err := newBlobStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	healthChecks := map[string]func(ctx context.Context) error{
		"database": database.HealthCheck,
	}

	var (
		publisher     events.Publisher = events.NopPublisher{}
		identityCache services.IdentityCache
		rateLimiter   *redis.RateLimiter
	)
	if cfg.RedisEnabled {
		client := redis.Initialize(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redis.Ping(context.Background(), client); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		publisher = events.NewRedisPublisher(client, events.NewInboxChannelResolver())
		identityCache = redis.NewIdentityCache(client, 5*time.Minute)

		limits := redis.DefaultRateLimitConfig()
		limits.MessageLimit = cfg.MessageRateLimit
		limits.UploadLimit = cfg.UploadRateLimit
		rateLimiter = redis.NewRateLimiter(client, limits)

		healthChecks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, client) }
		l.Infof("Redis enabled at %s:%s", cfg.RedisHost, cfg.RedisPort)
	}

	// Repositories
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)

	// Services
	directory := services.NewDirectoryService(directoryRepo, identityCache, l)
	access := proxy.NewAccessControl(convRepo)
	deps := services.Dependencies{
		DB:         db,
		Identities: directory,
		Tenancies:  directory,
		Publisher:  publisher,
		Logger:     l,
	}
	authService := services.NewAuthService(cfg.JWTSecret, 0)
	attachmentService := services.NewAttachmentService(store, access, directory)
	messageService := services.NewMessageService(deps, convRepo, directoryRepo, access, attachmentService)
	conversationService := services.NewConversationService(deps, convRepo, directoryRepo, access)
	groupingService := services.NewGroupingService(convRepo, msgRepo)
	inboxService := services.NewInboxService(deps, convRepo, msgRepo, directoryRepo, groupingService)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Messaging:   handler.NewMessagingHandler(messageService, inboxService, conversationService, l),
		Attachments: handler.NewAttachmentHandler(attachmentService, l),
	}, server.Dependencies{
		Auth:         authService,
		RateLimiter:  rateLimiter,
		HealthChecks: healthChecks,
	})

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}

func newBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.StorageDriver {
	case "s3":
		client, err := storage.NewClient(context.Background(), storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    "message_attachments",
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case "local", "":
		local, err := storage.NewLocalStore(cfg.StorageLocalRoot)
		if err != nil {
			return nil, err
		}
		return local, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
