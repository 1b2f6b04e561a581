package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/config"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/database"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/notifications"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/repository"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if cfg.AMQPUrl == "" {
		log.Fatal("AMQP_URL is required")
	}

	if err := database.ConnectDB(cfg.DBUrl, cfg.DBMaxConns, cfg.DBMinConns); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	notificationRepo := repository.NewNotificationRepository(database.DB)

	consumer, err := notifications.NewConsumer(cfg.AMQPUrl, cfg.AMQPExchange, cfg.NotificationsQueue, notificationRepo, logger)
	if err != nil {
		log.Fatalf("Failed to connect to message broker: %v", err)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier started", slog.String("queue", cfg.NotificationsQueue))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Consumer stopped: %v", err)
	}
}
