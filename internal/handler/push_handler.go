package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/service"
	"github.com/campusconnect/campus-api/internal/utils"
)

// PushHandler exposes Web Push subscription endpoints.
type PushHandler struct {
	service service.PushService
	logger  zerolog.Logger
}

// NewPushHandler constructs a push handler.
func NewPushHandler(service service.PushService, logger zerolog.Logger) *PushHandler {
	return &PushHandler{
		service: service,
		logger:  logger.With().Str("component", "push_handler").Logger(),
	}
}

// Register binds the push subscription routes.
func (h *PushHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.subscribe)
	router.Delete("/", h.unsubscribe)
}

func (h *PushHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	subscriptions, err := h.service.Subscriptions(requestContext(c), userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "push subscriptions", subscriptions)
}

func (h *PushHandler) subscribe(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.PushSubscribeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	subscription, err := h.service.Subscribe(requestContext(c), userID, c.Get("User-Agent"), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "push subscription registered", subscription)
}

func (h *PushHandler) unsubscribe(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	endpoint := strings.TrimSpace(c.Query("endpoint"))
	if err := h.service.Unsubscribe(requestContext(c), userID, endpoint); err != nil {
		if errors.Is(err, service.ErrPushSubscriptionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "push subscription removed", nil)
}
