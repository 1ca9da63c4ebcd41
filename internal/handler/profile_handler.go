package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/service"
	"github.com/campusconnect/campus-api/internal/utils"
)

// ProfileHandler exposes profile endpoints.
type ProfileHandler struct {
	service   service.ProfileService
	uploads   service.UploadService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(service service.ProfileService, uploads service.UploadService, validator *validator.Validate, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service:   service,
		uploads:   uploads,
		validator: validator,
		logger:    logger.With().Str("component", "profile_handler").Logger(),
	}
}

// Register binds the profile routes.
func (h *ProfileHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
	router.Put("/me", h.update)
	router.Put("/me/avatar", h.avatar)
	router.Get("/:user_id", h.get)
}

func (h *ProfileHandler) me(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	profile, err := h.service.Get(requestContext(c), userID, userID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "profile", profile)
}

func (h *ProfileHandler) get(c *fiber.Ctx) error {
	viewerID := userIDFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	userID := strings.TrimSpace(c.Params("user_id"))
	if userID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user_id required")
	}

	profile, err := h.service.Get(requestContext(c), viewerID, userID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "profile", profile)
}

func (h *ProfileHandler) update(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.ProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	profile, err := h.service.Update(requestContext(c), userID, payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "profile updated", profile)
}

// avatar uploads a new avatar image and binds it to the caller's profile.
func (h *ProfileHandler) avatar(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	ctx := requestContext(c)
	stored, err := h.uploads.Upload(ctx, userID, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrUploadNotImage):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		default:
			return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	profile, err := h.service.SetAvatar(ctx, userID, stored.URL)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "avatar updated", profile)
}
