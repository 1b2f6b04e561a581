package routes

import (
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/config"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/handlers"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/middleware"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/notifications"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/realtime"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/repository"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/services"
)

func RegisterRoutes(
	app *fiber.App,
	cfg *config.Config,
	db *pgxpool.Pool,
	hub *realtime.Hub,
	outbox *notifications.Outbox,
) {
	profileRepo := repository.NewProfileRepository(db)
	organizationRepo := repository.NewOrganizationRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	chatService := services.NewChatService(
		bookingRepo,
		profileRepo,
		organizationRepo,
		conversationRepo,
		messageRepo,
		hub,
		hub,
		outbox,
		cfg.ChatMessageMaxLength,
	)
	chatHandler := handlers.NewChatHandler(chatService, hub, cfg.JWTSecret)
	profileHandler := handlers.NewProfileHandler(profileRepo)

	api := app.Group("/api")

	me := api.Group("/me", middleware.AuthRequired(cfg.JWTSecret))
	me.Get("", profileHandler.GetMe)
	me.Patch("", profileHandler.UpdateMe)

	chat := api.Group("/chat", middleware.ChatEnabled(cfg.ChatEnabled))

	// The websocket route skips the limiter; it is one long-lived request.
	chat.Use("/ws", chatHandler.WebSocketAuth)
	chat.Get("/ws", websocket.New(chatHandler.HandleWebSocket))

	authed := chat.Group("",
		middleware.AuthRequired(cfg.JWTSecret),
		chatRateLimiter(),
		middleware.OrganizationContext(),
	)
	authed.Get("/conversations", chatHandler.ListConversations)
	authed.Get("/conversations/:id/messages", chatHandler.GetMessages)
	authed.Post("/bookings/:bookingId/messages", chatHandler.SendBookingMessage)
}

func chatRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        60,
		Expiration: 10 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
				return userID
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"ok":    false,
				"error": "RATE_LIMITED",
			})
		},
	})
}
