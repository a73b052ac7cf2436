package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "kehila/internal/errors"
	"kehila/internal/external"
	"kehila/internal/logger"
	"kehila/internal/metrics"
	"kehila/internal/models"
)

// Collaborator contracts for the registration workflow. The concrete
// repository and client types satisfy them; tests substitute fakes.
type eventStore interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

type registrationStore interface {
	CreateIfCapacity(ctx context.Context, reg *models.Registration, capacity int) (bool, error)
	CountActiveByEvent(ctx context.Context, eventID int64) (int, error)
	HasActiveByEventAndUser(ctx context.Context, eventID, userID int64) (bool, error)
	LinkToBundleRegistration(ctx context.Context, registrationIDs []int64, bundleRegistrationID int64) error
	CancelByBundleRegistration(ctx context.Context, bundleRegistrationID int64) error
}

type bundleStore interface {
	Create(ctx context.Context, bundle *models.Bundle) error
	GetByID(ctx context.Context, id int64) (*models.Bundle, error)
	ListPublished(ctx context.Context) ([]models.Bundle, error)
	ListAll(ctx context.Context) ([]models.Bundle, error)
	Update(ctx context.Context, bundle *models.Bundle) error
	Delete(ctx context.Context, id int64) error
}

type bundleRegistrationStore interface {
	Create(ctx context.Context, br *models.BundleRegistration) error
	GetByID(ctx context.Context, id int64) (*models.BundleRegistration, error)
	HasActive(ctx context.Context, bundleID, userID int64) (bool, error)
	SetPaymentIntent(ctx context.Context, id int64, intentID string) error
	UpdateStatus(ctx context.Context, id int64, status, paymentStatus string) error
}

type profileStore interface {
	GetBySubject(ctx context.Context, subject string) (*models.UserProfile, error)
	Create(ctx context.Context, user *models.UserProfile) error
}

type identityVerifier interface {
	VerifyToken(ctx context.Context, token string) (*external.VerifiedIdentity, error)
}

type paymentGateway interface {
	Configured() bool
	CreateIntent(ctx context.Context, amount int64, metadata map[string]string) (*external.PaymentIntentResponse, error)
	CancelIntent(ctx context.Context, intentID string) error
}

type eventPublisher interface {
	Publish(subject string, data interface{}) error
}

type BundleService struct {
	bundleRepo    bundleStore
	bundleRegRepo bundleRegistrationStore
	eventRepo     eventStore
	regRepo       registrationStore
	userRepo      profileStore
	identity      identityVerifier
	payments      paymentGateway
	natsClient    eventPublisher
}

func NewBundleService(bundleRepo bundleStore, bundleRegRepo bundleRegistrationStore, eventRepo eventStore, regRepo registrationStore, userRepo profileStore, identity identityVerifier, payments paymentGateway, natsClient eventPublisher) *BundleService {
	return &BundleService{
		bundleRepo:    bundleRepo,
		bundleRegRepo: bundleRegRepo,
		eventRepo:     eventRepo,
		regRepo:       regRepo,
		userRepo:      userRepo,
		identity:      identity,
		payments:      payments,
		natsClient:    natsClient,
	}
}

// Register performs a bundle purchase: verifies the caller's token, walks the
// bundle's events through eligibility and replacement search, writes the
// accepted registrations and one parent record, then opens a payment intent
// when the gateway is configured. Per-event failures become skip entries;
// only shared steps abort the request.
func (s *BundleService) Register(ctx context.Context, req *models.RegisterBundleRequest) (*models.RegisterBundleResponse, error) {
	if req.Token == "" {
		return nil, fmt.Errorf("token is required: %w", apperrors.ErrValidation)
	}
	if req.BundleID == 0 {
		return nil, fmt.Errorf("bundleId is required: %w", apperrors.ErrValidation)
	}

	identity, err := s.identity.VerifyToken(ctx, req.Token)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", apperrors.ErrUnauthorized)
	}

	user, err := s.resolveProfile(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve purchaser profile: %w", err)
	}

	bundle, err := s.bundleRepo.GetByID(ctx, req.BundleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bundle: %w", err)
	}
	if bundle == nil {
		return nil, fmt.Errorf("bundle not found: %w", apperrors.ErrNotFound)
	}
	if len(bundle.EventIDs) == 0 {
		return nil, fmt.Errorf("bundle has no events: %w", apperrors.ErrValidation)
	}
	if !purchasable(bundle, time.Now()) {
		return nil, fmt.Errorf("bundle is not available for purchase: %w", apperrors.ErrValidation)
	}

	// Friendly pre-check; the partial unique index remains the real guard
	exists, err := s.bundleRegRepo.HasActive(ctx, bundle.ID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("active registration already exists for this bundle: %w", apperrors.ErrConflict)
	}

	outcomes, skips, registrationIDs, err := s.processEvents(ctx, bundle, user, req.RegistrationData)
	if err != nil {
		return nil, err
	}

	br := &models.BundleRegistration{
		BundleID:       bundle.ID,
		UserID:         user.ID,
		Status:         models.RegistrationStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		EventOutcomes:  outcomes,
		SkippedEvents:  skips,
		PurchaserName:  user.Name,
		PurchaserEmail: user.Email,
		PurchaserPhone: user.Phone,
		BundleTitle:    bundle.Title,
		PriceAgorot:    bundle.PriceAgorot,
		Pickup:         req.RegistrationData.Pickup,
		Medical:        req.RegistrationData.Medical,
		Notes:          req.RegistrationData.Notes,
	}

	if err := s.bundleRegRepo.Create(ctx, br); err != nil {
		return nil, fmt.Errorf("failed to create bundle registration: %w", err)
	}

	if err := s.regRepo.LinkToBundleRegistration(ctx, registrationIDs, br.ID); err != nil {
		// Registrations and parent are already committed; missing
		// back-references are repairable and not worth failing the purchase
		logger.WithContext(ctx).Error("Failed to link registrations to bundle registration",
			"error", err,
			"bundle_registration_id", br.ID)
	}

	metrics.BundleRegistrationsTotal.Inc()

	clientSecret := s.initiatePayment(ctx, bundle, br)

	completedEvent := models.BundleRegistrationCompletedEvent{
		BundleRegistrationID: br.ID,
		BundleID:             bundle.ID,
		UserID:               user.ID,
		PurchaserName:        user.Name,
		PurchaserEmail:       user.Email,
		BundleTitle:          bundle.Title,
		EventOutcomes:        outcomes,
		SkippedEvents:        skips,
		Timestamp:            time.Now(),
	}
	if err := s.natsClient.Publish(models.EventBundleRegistrationCompleted, completedEvent); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish bundle registration completed event",
			"error", err,
			"bundle_registration_id", br.ID,
			"event_type", models.EventBundleRegistrationCompleted)
	}

	return &models.RegisterBundleResponse{
		BundleRegistrationID: br.ID,
		EventRegistrations:   outcomes,
		SkippedEvents:        skips,
		Status:               models.RegistrationStatusPending,
		Message:              fmt.Sprintf("registered for %d of %d events", len(outcomes), len(bundle.EventIDs)),
		ClientSecret:         clientSecret,
	}, nil
}

// purchasable reports whether the bundle can currently be bought
func purchasable(bundle *models.Bundle, now time.Time) bool {
	if !bundle.Published || !bundle.Active {
		return false
	}
	if bundle.ValidUntil != nil && !bundle.ValidUntil.After(now) {
		return false
	}
	return true
}

// processEvents walks the primary events in bundle order. Each primary is
// evaluated, written if eligible, or handed to the replacement search; a
// replacement consumed by one primary is not offered to the next. Hard write
// failures abort; everything else ends up in the outcome or skip lists.
func (s *BundleService) processEvents(ctx context.Context, bundle *models.Bundle, user *models.UserProfile, data models.RegistrationData) ([]models.EventOutcome, []models.SkippedEvent, []int64, error) {
	outcomes := []models.EventOutcome{}
	skips := []models.SkippedEvent{}
	var registrationIDs []int64
	usedReplacements := make(map[int64]bool)

	for _, eventID := range bundle.EventIDs {
		event, reason := s.evaluate(ctx, eventID, user.ID)

		if reason == "" {
			reg, inserted, err := s.writeRegistration(ctx, event, user, data)
			if err != nil {
				if errors.Is(err, apperrors.ErrConflict) {
					reason = ReasonAlreadyRegistered
				} else {
					return nil, nil, nil, fmt.Errorf("failed to write registration for event %d: %w", eventID, err)
				}
			} else if !inserted {
				// Lost the capacity race between evaluation and write
				reason = ReasonFull
			} else {
				outcomes = append(outcomes, models.EventOutcome{
					EventID:        eventID,
					RegistrationID: reg.ID,
					Outcome:        "registered",
				})
				registrationIDs = append(registrationIDs, reg.ID)
				metrics.RegistrationsTotal.WithLabelValues("registered").Inc()
				continue
			}
		}

		// A purchaser who already holds the event gains nothing from a substitute
		if reason != ReasonAlreadyRegistered {
			replacement, regID, err := s.findReplacement(ctx, bundle, user, data, usedReplacements)
			if err != nil {
				return nil, nil, nil, err
			}
			if replacement != 0 {
				outcomes = append(outcomes, models.EventOutcome{
					EventID:        replacement,
					RegistrationID: regID,
					Outcome:        "replaced",
				})
				registrationIDs = append(registrationIDs, regID)
				metrics.RegistrationsTotal.WithLabelValues("replaced").Inc()
				continue
			}
		}

		skips = append(skips, models.SkippedEvent{EventID: eventID, Reason: reason})
		metrics.SkipsTotal.WithLabelValues(reason).Inc()
	}

	return outcomes, skips, registrationIDs, nil
}

// findReplacement tries the replacement pool in bundle order and registers the
// first candidate that accepts the purchaser. Returns (0, 0, nil) when the
// pool is exhausted.
func (s *BundleService) findReplacement(ctx context.Context, bundle *models.Bundle, user *models.UserProfile, data models.RegistrationData, used map[int64]bool) (int64, int64, error) {
	for _, candidateID := range bundle.ReplacementEventIDs {
		if used[candidateID] {
			continue
		}

		candidate, reason := s.evaluate(ctx, candidateID, user.ID)
		if reason != "" {
			continue
		}

		reg, inserted, err := s.writeRegistration(ctx, candidate, user, data)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				continue
			}
			return 0, 0, fmt.Errorf("failed to write registration for replacement event %d: %w", candidateID, err)
		}
		if !inserted {
			continue
		}

		used[candidateID] = true
		return candidateID, reg.ID, nil
	}

	return 0, 0, nil
}

// evaluate loads the event and answers whether the purchaser can register for
// it right now. Storage errors become the "error" reason instead of
// propagating, so one broken event never sinks the whole batch.
func (s *BundleService) evaluate(ctx context.Context, eventID, userID int64) (*models.Event, string) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to load event during eligibility check",
			"error", err,
			"event_id", eventID)
		return nil, ReasonError
	}
	if event == nil {
		logger.WithContext(ctx).Warn("Bundle references missing event", "event_id", eventID)
		return nil, ReasonError
	}

	already, err := s.regRepo.HasActiveByEventAndUser(ctx, eventID, userID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to check existing registration",
			"error", err,
			"event_id", eventID)
		return event, ReasonError
	}
	if already {
		return event, ReasonAlreadyRegistered
	}

	count, err := s.regRepo.CountActiveByEvent(ctx, eventID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to count registrations during eligibility check",
			"error", err,
			"event_id", eventID)
		return event, ReasonError
	}

	return event, EvaluateEligibility(event, count, time.Now())
}

func (s *BundleService) writeRegistration(ctx context.Context, event *models.Event, user *models.UserProfile, data models.RegistrationData) (*models.Registration, bool, error) {
	reg := &models.Registration{
		EventID:        event.ID,
		UserID:         user.ID,
		Status:         models.RegistrationStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		PurchaserName:  user.Name,
		PurchaserEmail: user.Email,
		PurchaserPhone: user.Phone,
		Pickup:         data.Pickup,
		Medical:        data.Medical,
		Notes:          data.Notes,
		FromBundle:     true,
	}

	inserted, err := s.regRepo.CreateIfCapacity(ctx, reg, event.Capacity)
	if err != nil {
		return nil, false, err
	}

	return reg, inserted, nil
}

// initiatePayment opens an intent at the gateway for priced bundles. Any
// failure is logged and swallowed; the purchase stands without a secret.
func (s *BundleService) initiatePayment(ctx context.Context, bundle *models.Bundle, br *models.BundleRegistration) *string {
	if bundle.PriceAgorot <= 0 || s.payments == nil || !s.payments.Configured() {
		return nil
	}

	intent, err := s.payments.CreateIntent(ctx, bundle.PriceAgorot, map[string]string{
		"bundle_registration_id": fmt.Sprintf("%d", br.ID),
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to create payment intent",
			"error", err,
			"bundle_registration_id", br.ID)
		return nil
	}

	if err := s.bundleRegRepo.SetPaymentIntent(ctx, br.ID, intent.IntentID); err != nil {
		logger.WithContext(ctx).Error("Failed to store payment intent id",
			"error", err,
			"bundle_registration_id", br.ID)
	}

	intentEvent := models.PaymentIntentCreatedEvent{
		BundleRegistrationID: br.ID,
		PaymentIntentID:      intent.IntentID,
		AmountAgorot:         bundle.PriceAgorot,
		Timestamp:            time.Now(),
	}
	if err := s.natsClient.Publish(models.EventPaymentIntentCreated, intentEvent); err != nil {
		logger.WithContext(ctx).Error("Failed to publish payment intent created event",
			"error", err,
			"bundle_registration_id", br.ID)
	}

	return &intent.ClientSecret
}

// resolveProfile finds the purchaser's profile by verified subject, creating a
// minimal one on first purchase. Bootstrap later fills in name and phone.
func (s *BundleService) resolveProfile(ctx context.Context, identity *external.VerifiedIdentity) (*models.UserProfile, error) {
	user, err := s.userRepo.GetBySubject(ctx, identity.Subject)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user = &models.UserProfile{
		Subject: identity.Subject,
		Email:   identity.Email,
		Name:    identity.Email,
		Role:    models.RoleParent,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// CancelRegistration is the admin path out of a bundle purchase: member
// registrations and the parent record move to cancelled, and an open payment
// intent is voided at the gateway best-effort. Idempotent on repeat calls.
func (s *BundleService) CancelRegistration(ctx context.Context, id int64) error {
	br, err := s.bundleRegRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get bundle registration: %w", err)
	}
	if br == nil {
		return fmt.Errorf("bundle registration not found: %w", apperrors.ErrNotFound)
	}
	if br.Status == models.RegistrationStatusCancelled {
		return nil
	}

	if err := s.regRepo.CancelByBundleRegistration(ctx, br.ID); err != nil {
		return fmt.Errorf("failed to cancel member registrations: %w", err)
	}

	if err := s.bundleRegRepo.UpdateStatus(ctx, br.ID, models.RegistrationStatusCancelled, models.PaymentStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel bundle registration: %w", err)
	}

	if br.PaymentIntentID != nil && s.payments != nil && s.payments.Configured() {
		if err := s.payments.CancelIntent(ctx, *br.PaymentIntentID); err != nil {
			// The records are cancelled either way; an orphaned intent
			// expires at the gateway
			logger.WithContext(ctx).Error("Failed to cancel payment intent",
				"error", err,
				"bundle_registration_id", br.ID,
				"payment_intent_id", *br.PaymentIntentID)
		}
	}

	return nil
}

// CreateBundle validates and persists an admin-defined bundle
func (s *BundleService) CreateBundle(ctx context.Context, req *models.CreateBundleRequest) (*models.CreateBundleResponse, error) {
	if len(req.EventIDs) == 0 {
		return nil, fmt.Errorf("bundle requires at least one event: %w", apperrors.ErrValidation)
	}

	for _, eventID := range append(append([]int64{}, req.EventIDs...), req.ReplacementEventIDs...) {
		event, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("failed to check event %d: %w", eventID, err)
		}
		if event == nil {
			return nil, fmt.Errorf("event %d does not exist: %w", eventID, apperrors.ErrValidation)
		}
	}

	bundle := &models.Bundle{
		Title:               req.Title,
		Description:         req.Description,
		PriceAgorot:         req.PriceAgorot,
		ValidUntil:          req.ValidUntil,
		Published:           req.Published.Bool(),
		Active:              req.Active.Bool(),
		EventIDs:            req.EventIDs,
		ReplacementEventIDs: req.ReplacementEventIDs,
	}

	if err := s.bundleRepo.Create(ctx, bundle); err != nil {
		return nil, fmt.Errorf("failed to create bundle: %w", err)
	}

	return &models.CreateBundleResponse{ID: bundle.ID}, nil
}

// ListPublished returns bundles currently offered for purchase
func (s *BundleService) ListPublished(ctx context.Context) ([]models.Bundle, error) {
	return s.bundleRepo.ListPublished(ctx)
}

func (s *BundleService) ListAll(ctx context.Context) ([]models.Bundle, error) {
	return s.bundleRepo.ListAll(ctx)
}

func (s *BundleService) GetByID(ctx context.Context, id int64) (*models.Bundle, error) {
	return s.bundleRepo.GetByID(ctx, id)
}

func (s *BundleService) UpdateBundle(ctx context.Context, id int64, req *models.CreateBundleRequest) error {
	if len(req.EventIDs) == 0 {
		return fmt.Errorf("bundle requires at least one event: %w", apperrors.ErrValidation)
	}

	bundle := &models.Bundle{
		ID:                  id,
		Title:               req.Title,
		Description:         req.Description,
		PriceAgorot:         req.PriceAgorot,
		ValidUntil:          req.ValidUntil,
		Published:           req.Published.Bool(),
		Active:              req.Active.Bool(),
		EventIDs:            req.EventIDs,
		ReplacementEventIDs: req.ReplacementEventIDs,
	}

	return s.bundleRepo.Update(ctx, bundle)
}

// DeleteBundle removes the bundle with its registrations via cascade
func (s *BundleService) DeleteBundle(ctx context.Context, id int64) error {
	return s.bundleRepo.Delete(ctx, id)
}
