package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/service"
	"github.com/campusconnect/campus-api/internal/utils"
)

// PresenceHandler exposes presence queries.
type PresenceHandler struct {
	service service.PresenceService
	logger  zerolog.Logger
}

// NewPresenceHandler constructs a presence handler.
func NewPresenceHandler(service service.PresenceService, logger zerolog.Logger) *PresenceHandler {
	return &PresenceHandler{
		service: service,
		logger:  logger.With().Str("component", "presence_handler").Logger(),
	}
}

// Register binds the presence routes.
func (h *PresenceHandler) Register(router fiber.Router) {
	router.Get("/batch", h.batch)
	router.Get("/:user_id", h.status)
}

func (h *PresenceHandler) status(c *fiber.Ctx) error {
	if userIDFromContext(c) == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	userID := strings.TrimSpace(c.Params("user_id"))
	if userID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user_id required")
	}

	status, err := h.service.Status(requestContext(c), userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "presence status", status)
}

func (h *PresenceHandler) batch(c *fiber.Ctx) error {
	if userIDFromContext(c) == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	raw := strings.TrimSpace(c.Query("user_ids"))
	if raw == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user_ids required")
	}

	ids := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) == 0 || len(ids) > 100 {
		return utils.SendError(c, fiber.StatusBadRequest, "user_ids must contain between 1 and 100 ids")
	}

	statuses, err := h.service.StatusBatch(requestContext(c), ids)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "presence status", statuses)
}
