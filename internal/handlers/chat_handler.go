package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/realtime"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/services"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/pkg/utils"
)

const (
	defaultConversationLimit = 30
	maxConversationLimit     = 100
)

type chatApplicationService interface {
	SendBookingMessage(ctx context.Context, actor services.Actor, input services.SendBookingMessageInput) (*services.SentMessage, error)
	ListConversations(ctx context.Context, actor services.Actor, limit int, updatedAfter *time.Time) ([]models.ConversationSummary, error)
	ListMessages(ctx context.Context, actor services.Actor, conversationID int64, page int, limit int) ([]models.ChatMessage, int, error)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *realtime.Hub
	jwtSecret string
}

func NewChatHandler(service chatApplicationService, hub *realtime.Hub, jwtSecret string) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

type sendMessageRequest struct {
	Body            string `json:"body"`
	ClientMessageID string `json:"clientMessageId"`
}

func (h *ChatHandler) SendBookingMessage(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthenticatedEnvelope(c)
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "EMPTY_BODY",
		})
	}

	sent, err := h.service.SendBookingMessage(c.Context(), actor, services.SendBookingMessageInput{
		BookingID:       c.Params("bookingId"),
		Body:            req.Body,
		ClientMessageID: req.ClientMessageID,
	})
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":             true,
		"conversationId": sent.ConversationID,
		"item":           messageItem(sent.Message, sent.Sender),
	})
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthenticatedEnvelope(c)
	}

	limit := parsePositiveInt(c.Query("limit"), defaultConversationLimit)
	if limit > maxConversationLimit {
		limit = maxConversationLimit
	}

	var updatedAfter *time.Time
	if raw := strings.TrimSpace(c.Query("updatedAfter")); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			updatedAfter = &parsed
		}
	}

	conversations, err := h.service.ListConversations(c.Context(), actor, limit, updatedAfter)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":            true,
		"conversations": conversations,
	})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthenticatedEnvelope(c)
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "INVALID_CONVERSATION",
		})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.service.ListMessages(c.Context(), actor, conversationID, page, limit)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":         true,
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
			"ok":    false,
			"error": "UPGRADE_REQUIRED",
		})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"ok":    false,
			"error": "UNAUTHENTICATED",
		})
	}

	c.Locals("user_id", claims.UserID)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	client := realtime.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func actorFromCtx(c *fiber.Ctx) (services.Actor, bool) {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return services.Actor{}, false
	}
	orgID, ok := c.Locals("org_id").(int64)
	if !ok || orgID <= 0 {
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, OrganizationID: orgID}, true
}

func messageItem(message *models.ChatMessage, sender *models.SenderDisplay) fiber.Map {
	var deletedAt *string
	if message.DeletedAt != nil {
		formatted := services.FormatChatTimestamp(*message.DeletedAt)
		deletedAt = &formatted
	}
	return fiber.Map{
		"id":        message.ID,
		"body":      message.Body,
		"createdAt": services.FormatChatTimestamp(message.CreatedAt),
		"deletedAt": deletedAt,
		"sender":    sender,
	}
}

func unauthenticatedEnvelope(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"ok":    false,
		"error": "UNAUTHENTICATED",
	})
}

func mapChatError(c *fiber.Ctx, err error) error {
	status, code := chatErrorStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("chat request failed: %v", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"ok":    false,
		"error": code,
	})
}

func chatErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotOrganizationMember):
		return fiber.StatusForbidden, "NOT_ORGANIZATION_MEMBER"
	case errors.Is(err, services.ErrInvalidBooking):
		return fiber.StatusBadRequest, "INVALID_BOOKING"
	case errors.Is(err, services.ErrBookingNotFound):
		return fiber.StatusNotFound, "BOOKING_NOT_FOUND"
	case errors.Is(err, services.ErrBookingNoCustomer):
		return fiber.StatusBadRequest, "BOOKING_NO_CUSTOMER"
	case errors.Is(err, services.ErrBookingInactive):
		return fiber.StatusForbidden, "BOOKING_INACTIVE"
	case errors.Is(err, services.ErrBookingInvalid):
		return fiber.StatusBadRequest, "BOOKING_INVALID"
	case errors.Is(err, services.ErrReadOnly):
		return fiber.StatusForbidden, "READ_ONLY"
	case errors.Is(err, services.ErrEmptyBody):
		return fiber.StatusBadRequest, "EMPTY_BODY"
	case errors.Is(err, services.ErrMessageTooLong):
		return fiber.StatusBadRequest, "MESSAGE_TOO_LONG"
	case errors.Is(err, services.ErrConversationNotFound):
		return fiber.StatusNotFound, "CONVERSATION_NOT_FOUND"
	case errors.Is(err, services.ErrRealtimeUnavailable):
		return fiber.StatusServiceUnavailable, "REALTIME_UNAVAILABLE"
	case errors.Is(err, services.ErrInvalidInput):
		return fiber.StatusBadRequest, "INVALID_REQUEST"
	default:
		return fiber.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
