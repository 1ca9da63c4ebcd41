package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campusconnect/campus-api/internal/config"
	"github.com/campusconnect/campus-api/internal/handler"
	"github.com/campusconnect/campus-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MessageHandler      *handler.MessageHandler
	NotificationHandler *handler.NotificationHandler
	PresenceHandler     *handler.PresenceHandler
	FriendHandler       *handler.FriendHandler
	PostHandler         *handler.PostHandler
	ProfileHandler      *handler.ProfileHandler
	SettingsHandler     *handler.SettingsHandler
	UploadHandler       *handler.UploadHandler
	PushHandler         *handler.PushHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.MessageHandler != nil {
		messages := app.Group("/api/v1/messages", jwtMiddleware)
		deps.MessageHandler.Register(messages)
	}

	if deps.NotificationHandler != nil {
		notifications := app.Group("/api/v1/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.PresenceHandler != nil {
		presence := app.Group("/api/v1/presence", jwtMiddleware)
		deps.PresenceHandler.Register(presence)
	}

	if deps.FriendHandler != nil {
		friends := app.Group("/api/v1/friends", jwtMiddleware)
		deps.FriendHandler.Register(friends)
	}

	if deps.PostHandler != nil {
		posts := app.Group("/api/v1/posts", jwtMiddleware)
		deps.PostHandler.Register(posts)
	}

	if deps.ProfileHandler != nil {
		profiles := app.Group("/api/v1/profiles", jwtMiddleware)
		deps.ProfileHandler.Register(profiles)
	}

	if deps.SettingsHandler != nil {
		settings := app.Group("/api/v1/settings", jwtMiddleware)
		deps.SettingsHandler.Register(settings)
	}

	if deps.UploadHandler != nil {
		uploads := app.Group("/api/v1/uploads", jwtMiddleware)
		deps.UploadHandler.Register(uploads)
	}

	if deps.PushHandler != nil {
		push := app.Group("/api/v1/push-subscriptions", jwtMiddleware)
		deps.PushHandler.Register(push)
	}
}
