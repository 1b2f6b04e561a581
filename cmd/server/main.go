package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/config"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/database"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/notifications"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/realtime"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/routes"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl, cfg.DBMaxConns, cfg.DBMinConns); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	// 3. Notification outbox (optional; a nil outbox reports unavailable and
	// the chat flow degrades to live-only delivery)
	var outbox *notifications.Outbox
	if cfg.AMQPUrl != "" {
		outbox, err = notifications.NewOutbox(cfg.AMQPUrl, cfg.AMQPExchange, slog.New(slog.NewJSONHandler(os.Stdout, nil)))
		if err != nil {
			log.Fatalf("Failed to connect to message broker: %v", err)
		}
		defer outbox.Close()
	} else {
		log.Println("AMQP_URL not set, notification outbox disabled")
	}

	// 4. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	hub := realtime.NewHub()
	routes.RegisterRoutes(app, cfg, database.DB, hub, outbox)

	// 5. Start Server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
