package service

import (
	"context"
	"fmt"
	"time"

	apperrors "kehila/internal/errors"
	"kehila/internal/logger"
	"kehila/internal/metrics"
	"kehila/internal/models"
	"kehila/internal/repository"
)

type RegistrationService struct {
	regRepo       *repository.RegistrationRepository
	bundleRegRepo *repository.BundleRegistrationRepository
	eventRepo     *repository.EventRepository
	userRepo      *repository.UserRepository
	natsClient    eventPublisher
}

func NewRegistrationService(regRepo *repository.RegistrationRepository, bundleRegRepo *repository.BundleRegistrationRepository, eventRepo *repository.EventRepository, userRepo *repository.UserRepository, natsClient eventPublisher) *RegistrationService {
	return &RegistrationService{
		regRepo:       regRepo,
		bundleRegRepo: bundleRegRepo,
		eventRepo:     eventRepo,
		userRepo:      userRepo,
		natsClient:    natsClient,
	}
}

// Register signs an authenticated member up for a single event. Capacity is
// enforced by the conditional insert, not by the preliminary count.
func (s *RegistrationService) Register(ctx context.Context, userID, eventID int64, req *models.RegisterEventRequest) (*models.RegisterEventResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("profile not found: %w", apperrors.ErrUnauthorized)
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil || !event.Published {
		return nil, fmt.Errorf("event not found: %w", apperrors.ErrNotFound)
	}

	count, err := s.regRepo.CountActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}

	switch reason := EvaluateEligibility(event, count, time.Now()); reason {
	case "":
	case ReasonFull:
		return nil, fmt.Errorf("event is full: %w", apperrors.ErrConflict)
	default:
		return nil, fmt.Errorf("event is not open for registration (%s): %w", reason, apperrors.ErrValidation)
	}

	reg := &models.Registration{
		EventID:        eventID,
		UserID:         userID,
		Status:         models.RegistrationStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		PurchaserName:  user.Name,
		PurchaserEmail: user.Email,
		PurchaserPhone: user.Phone,
		Pickup:         req.RegistrationData.Pickup,
		Medical:        req.RegistrationData.Medical,
		Notes:          req.RegistrationData.Notes,
	}

	inserted, err := s.regRepo.CreateIfCapacity(ctx, reg, event.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	if !inserted {
		return nil, fmt.Errorf("event is full: %w", apperrors.ErrConflict)
	}

	metrics.RegistrationsTotal.WithLabelValues("registered").Inc()

	createdEvent := models.RegistrationCreatedEvent{
		RegistrationID: reg.ID,
		EventID:        eventID,
		UserID:         userID,
		PurchaserName:  user.Name,
		PurchaserEmail: user.Email,
		EventTitle:     event.Title,
		Timestamp:      time.Now(),
	}
	if err := s.natsClient.Publish(models.EventRegistrationCreated, createdEvent); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish registration created event",
			"error", err,
			"registration_id", reg.ID,
			"event_type", models.EventRegistrationCreated)
	}

	return &models.RegisterEventResponse{
		RegistrationID: reg.ID,
		Status:         reg.Status,
	}, nil
}

// ListOwn returns the caller's single-event and bundle registrations
func (s *RegistrationService) ListOwn(ctx context.Context, userID int64) ([]models.Registration, []models.BundleRegistration, error) {
	regs, err := s.regRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get registrations: %w", err)
	}

	bundleRegs, err := s.bundleRegRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bundle registrations: %w", err)
	}

	return regs, bundleRegs, nil
}

// Cancel releases the caller's spot. Cancelling twice is a no-op.
func (s *RegistrationService) Cancel(ctx context.Context, userID, registrationID int64) error {
	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return fmt.Errorf("registration not found: %w", apperrors.ErrNotFound)
	}
	if reg.UserID != userID {
		return fmt.Errorf("registration belongs to another user: %w", apperrors.ErrForbidden)
	}
	if reg.Status == models.RegistrationStatusCancelled {
		return nil
	}

	if err := s.regRepo.UpdateStatus(ctx, registrationID, models.RegistrationStatusCancelled, models.PaymentStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel registration: %w", err)
	}

	cancelledEvent := models.RegistrationCancelledEvent{
		RegistrationID: registrationID,
		EventID:        reg.EventID,
		UserID:         userID,
		Reason:         "user",
		Timestamp:      time.Now(),
	}
	if err := s.natsClient.Publish(models.EventRegistrationCancelled, cancelledEvent); err != nil {
		logger.WithContext(ctx).Error("Failed to publish registration cancelled event",
			"error", err,
			"registration_id", registrationID,
			"event_type", models.EventRegistrationCancelled)
	}

	return nil
}
