package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/middleware"
	"github.com/campusconnect/campus-api/internal/service"
	"github.com/campusconnect/campus-api/internal/utils"
)

// MessageHandler wires direct-message endpoints including the websocket
// upgrade for live conversations.
type MessageHandler struct {
	service   service.MessageService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewMessageHandler creates a message handler instance.
func NewMessageHandler(service service.MessageService, validator *validator.Validate, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register binds message routes under the provided router group.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
	router.Get("/history", h.history)
	router.Get("/conversations", h.conversations)
	router.Get("/unread", h.unreadCount)
	router.Patch("/read/:peer_id", h.markRead)
}

func (h *MessageHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	peerID := strings.TrimSpace(conn.Query("peer_id"))
	if peerID == "" || peerID == userID {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "peer_id required"))
		_ = conn.Close()
		return
	}

	correlation := fmt.Sprint(conn.Locals("correlation_id"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.ConversationOptions{
		UserID:        userID,
		PeerID:        peerID,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Str("peer_id", peerID).Msg("conversation websocket connected")
	h.service.ServeConversation(conn, opts)
	h.logger.Info().Str("user_id", userID).Str("peer_id", peerID).Msg("conversation websocket disconnected")
}

func (h *MessageHandler) history(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	peerID := strings.TrimSpace(c.Query("peer_id"))
	if peerID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "peer_id required")
	}

	var beforePtr *time.Time
	if before := c.Query("before"); before != "" {
		parsed, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid before timestamp")
		}
		beforePtr = &parsed
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	query := dto.MessageHistoryQuery{
		PeerID: peerID,
		Before: beforePtr,
		Limit:  limit,
	}
	if err := h.validator.Struct(query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	messages, err := h.service.History(requestContext(c), userID, query)
	if err != nil {
		if errors.Is(err, service.ErrMessagingNotAllowed) {
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "message history", messages)
}

func (h *MessageHandler) conversations(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	summaries, err := h.service.Conversations(requestContext(c), userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "conversations", summaries)
}

func (h *MessageHandler) unreadCount(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	count, err := h.service.UnreadCount(requestContext(c), userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "unread messages", fiber.Map{"count": count})
}

func (h *MessageHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	peerID := strings.TrimSpace(c.Params("peer_id"))
	if peerID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "peer_id required")
	}

	updated, err := h.service.MarkRead(requestContext(c), userID, peerID)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "conversation marked read", fiber.Map{"updated": updated})
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals("user_id"); value != nil {
		if v, ok := value.(string); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
