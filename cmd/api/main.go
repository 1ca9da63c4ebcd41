package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/config"
	"github.com/campusconnect/campus-api/internal/database"
	"github.com/campusconnect/campus-api/internal/handler"
	"github.com/campusconnect/campus-api/internal/middleware"
	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/realtime"
	"github.com/campusconnect/campus-api/internal/repository"
	"github.com/campusconnect/campus-api/internal/router"
	"github.com/campusconnect/campus-api/internal/service"
	cloud "github.com/campusconnect/campus-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Profile{},
		&models.Friendship{},
		&models.PrivacySettings{},
		&models.Post{},
		&models.PostLike{},
		&models.PostComment{},
		&models.Message{},
		&models.Notification{},
		&models.PushSubscription{},
		&models.UploadRecord{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewPostRepository(db)
	pushRepo := repository.NewPushSubscriptionRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	presenceStore := realtime.NewPresenceStore(redisClient, cfg.ChannelBase, natsConn, cfg.PresenceHeartbeat, logger)
	typingBroker := realtime.NewTypingBroker(redisClient, cfg.ChannelBase, cfg.NodeID, logger)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.ChannelBase, natsConn, validate, logger)
	friendService := service.NewFriendService(friendRepo, profileRepo, notificationService, validate, logger)
	postService := service.NewPostService(postRepo, friendService, profileRepo, notificationService, validate, logger)
	messageService := service.NewMessageService(messageRepo, profileRepo, presenceStore, typingBroker, redisClient, cfg.ChannelBase, natsConn, notificationService, validate, logger)
	profileService := service.NewProfileService(profileRepo, validate, logger)
	settingsService := service.NewSettingsService(profileRepo, validate, logger)
	presenceService := service.NewPresenceService(presenceStore, profileRepo, logger)
	uploadService := service.NewUploadService(uploader, uploadRepo, cfg.UploadMaxMB, logger)
	pushService := service.NewPushService(pushRepo, validate, logger)

	runCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	presenceStore.Start(runCtx)
	typingBroker.Start(runCtx)
	notificationService.Start(runCtx)
	messageService.Start(runCtx)

	messageHandler := handler.NewMessageHandler(messageService, validate, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive)
	presenceHandler := handler.NewPresenceHandler(presenceService, logger)
	friendHandler := handler.NewFriendHandler(friendService, validate, logger)
	postHandler := handler.NewPostHandler(postService, validate, logger)
	profileHandler := handler.NewProfileHandler(profileService, uploadService, validate, logger)
	settingsHandler := handler.NewSettingsHandler(settingsService, validate, logger)
	uploadHandler := handler.NewUploadHandler(uploadService, logger)
	pushHandler := handler.NewPushHandler(pushService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		MessageHandler:      messageHandler,
		NotificationHandler: notificationHandler,
		PresenceHandler:     presenceHandler,
		FriendHandler:       friendHandler,
		PostHandler:         postHandler,
		ProfileHandler:      profileHandler,
		SettingsHandler:     settingsHandler,
		UploadHandler:       uploadHandler,
		PushHandler:         pushHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopConsumers)
}

func waitForShutdown(app *fiber.App, stopConsumers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopConsumers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
