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

// PostHandler exposes the feed endpoints.
type PostHandler struct {
	service   service.PostService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPostHandler constructs a post handler.
func NewPostHandler(service service.PostService, validator *validator.Validate, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "post_handler").Logger(),
	}
}

// Register binds the feed routes.
func (h *PostHandler) Register(router fiber.Router) {
	router.Get("/", h.feed)
	router.Post("/", h.create)
	router.Get("/:id", h.get)
	router.Delete("/:id", h.remove)
	router.Post("/:id/like", h.like)
	router.Delete("/:id/like", h.unlike)
	router.Post("/:id/comments", h.comment)
}

func (h *PostHandler) feed(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	posts, err := h.service.Feed(requestContext(c), userID, limit, offset)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "feed", posts)
}

func (h *PostHandler) create(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.PostCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	post, err := h.service.Create(requestContext(c), userID, payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *PostHandler) get(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid post id")
	}

	post, err := h.service.Get(requestContext(c), userID, id)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "post", post)
}

func (h *PostHandler) remove(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid post id")
	}

	if err := h.service.Delete(requestContext(c), userID, id); err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "post deleted", nil)
}

func (h *PostHandler) like(c *fiber.Ctx) error {
	return h.toggleLike(c, h.service.Like, "post liked")
}

func (h *PostHandler) unlike(c *fiber.Ctx) error {
	return h.toggleLike(c, h.service.Unlike, "like removed")
}

func (h *PostHandler) toggleLike(c *fiber.Ctx, action func(ctx context.Context, userID string, postID uint) (dto.PostResponse, error), message string) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid post id")
	}

	post, err := action(requestContext(c), userID, id)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, message, post)
}

func (h *PostHandler) comment(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid post id")
	}

	var payload dto.PostCommentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	comment, err := h.service.Comment(requestContext(c), userID, id, payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPostNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		default:
			return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "comment added", comment)
}
