package consumers

import (
	"context"
	"log/slog"

	"kehila/internal/config"
	"kehila/internal/database"
	"kehila/internal/external"
	"kehila/internal/messaging"
	"kehila/internal/models"
	"kehila/internal/repository"
)

// ConsumerService is the notification worker. It consumes registration and
// announcement events off NATS and performs the email side effects, keeping
// delivery failures out of the HTTP request path entirely.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Connect to NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.New(db)
	emailClient := external.NewEmailClient(cfg.Email)
	handlers := NewHandlers(repos, emailClient)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	_, err := cs.nats.SubscribeQueue(models.EventBundleRegistrationCompleted, "notifications", cs.handlers.HandleBundleRegistrationCompleted)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventRegistrationCreated, "notifications", cs.handlers.HandleRegistrationCreated)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventRegistrationCancelled, "notifications", cs.handlers.HandleRegistrationCancelled)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventAnnouncementPublished, "notifications", cs.handlers.HandleAnnouncementPublished)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventPaymentIntentCreated, "notifications", cs.handlers.HandlePaymentIntentCreated)
	if err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
