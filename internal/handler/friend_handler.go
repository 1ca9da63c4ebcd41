package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/service"
	"github.com/campusconnect/campus-api/internal/utils"
)

// FriendHandler exposes friendship management endpoints.
type FriendHandler struct {
	service   service.FriendService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewFriendHandler constructs a friend handler.
func NewFriendHandler(service service.FriendService, validator *validator.Validate, logger zerolog.Logger) *FriendHandler {
	return &FriendHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "friend_handler").Logger(),
	}
}

// Register binds the friendship routes.
func (h *FriendHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/pending", h.pending)
	router.Post("/requests", h.request)
	router.Patch("/requests/:id/accept", h.accept)
	router.Patch("/requests/:id/decline", h.decline)
	router.Delete("/:id", h.remove)
}

func (h *FriendHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	friends, err := h.service.Friends(requestContext(c), userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "friends", friends)
}

func (h *FriendHandler) pending(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	requests, err := h.service.Pending(requestContext(c), userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "pending friend requests", requests)
}

func (h *FriendHandler) request(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.FriendRequestCreate
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	friendship, err := h.service.Request(requestContext(c), userID, payload)
	if err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrSelfFriendship):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrFriendRequestExists):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, service.ErrFriendRequestsClosed):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		default:
			return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "friend request sent", friendship)
}

func (h *FriendHandler) accept(c *fiber.Ctx) error {
	return h.resolve(c, h.service.Accept, "friend request accepted")
}

func (h *FriendHandler) decline(c *fiber.Ctx) error {
	return h.resolve(c, h.service.Decline, "friend request declined")
}

func (h *FriendHandler) resolve(c *fiber.Ctx, action func(ctx context.Context, userID string, id uint) (dto.FriendshipResponse, error), message string) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid friendship id")
	}

	friendship, err := action(requestContext(c), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFriendshipNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotAddressee):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		default:
			return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return utils.SendSuccess(c, message, friendship)
}

func (h *FriendHandler) remove(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid friendship id")
	}

	if err := h.service.Remove(requestContext(c), userID, id); err != nil {
		if errors.Is(err, service.ErrFriendshipNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "friendship removed", nil)
}
