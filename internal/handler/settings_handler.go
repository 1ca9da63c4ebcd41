package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/service"
	"github.com/campusconnect/campus-api/internal/utils"
)

// SettingsHandler exposes privacy settings endpoints.
type SettingsHandler struct {
	service   service.SettingsService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(service service.SettingsService, validator *validator.Validate, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register binds the settings routes.
func (h *SettingsHandler) Register(router fiber.Router) {
	router.Get("/privacy", h.get)
	router.Patch("/privacy", h.update)
}

func (h *SettingsHandler) get(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	settings, err := h.service.Get(requestContext(c), userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "privacy settings", settings)
}

func (h *SettingsHandler) update(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.PrivacySettingsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	settings, err := h.service.Update(requestContext(c), userID, payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "privacy settings updated", settings)
}
