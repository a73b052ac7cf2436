package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"kehila/internal/database"
	apperrors "kehila/internal/errors"
	"kehila/internal/models"
)

type BundleRegistrationRepository struct {
	db *database.DB
}

func NewBundleRegistrationRepository(db *database.DB) *BundleRegistrationRepository {
	return &BundleRegistrationRepository{db: db}
}

// Create persists the aggregate bundle purchase. A unique violation on the
// partial index means another active registration for the same (bundle, user)
// pair committed first; it is surfaced as ErrConflict.
func (r *BundleRegistrationRepository) Create(ctx context.Context, br *models.BundleRegistration) error {
	outcomes, err := json.Marshal(br.EventOutcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal event outcomes: %w", err)
	}
	skips, err := json.Marshal(br.SkippedEvents)
	if err != nil {
		return fmt.Errorf("failed to marshal skipped events: %w", err)
	}

	query := `
		INSERT INTO bundle_registrations (bundle_id, user_id, status, payment_status,
		                                  event_outcomes, skipped_events,
		                                  purchaser_name, purchaser_email, purchaser_phone,
		                                  bundle_title, price_agorot, pickup, medical, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		br.BundleID,
		br.UserID,
		br.Status,
		br.PaymentStatus,
		outcomes,
		skips,
		br.PurchaserName,
		br.PurchaserEmail,
		br.PurchaserPhone,
		br.BundleTitle,
		br.PriceAgorot,
		br.Pickup,
		br.Medical,
		br.Notes,
	).Scan(&br.ID, &br.CreatedAt, &br.UpdatedAt)

	if isUniqueViolation(err, "bundle_registrations_active_uniq") {
		return fmt.Errorf("active registration exists for bundle %d: %w", br.BundleID, apperrors.ErrConflict)
	}

	return err
}

// HasActive reports whether an active (pending/paid) bundle registration
// already exists for the (bundle, purchaser) pair
func (r *BundleRegistrationRepository) HasActive(ctx context.Context, bundleID, userID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bundle_registrations
			WHERE bundle_id = $1 AND user_id = $2 AND status IN ('pending', 'paid')
		)`

	err := r.db.QueryRowContext(ctx, query, bundleID, userID).Scan(&exists)
	return exists, err
}

func (r *BundleRegistrationRepository) GetByID(ctx context.Context, id int64) (*models.BundleRegistration, error) {
	br := &models.BundleRegistration{}
	var outcomes, skips []byte

	query := `
		SELECT id, bundle_id, user_id, status, payment_status,
		       event_outcomes, skipped_events,
		       purchaser_name, purchaser_email, purchaser_phone,
		       bundle_title, price_agorot, pickup, medical, notes,
		       payment_intent_id, created_at, updated_at
		FROM bundle_registrations
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&br.ID,
		&br.BundleID,
		&br.UserID,
		&br.Status,
		&br.PaymentStatus,
		&outcomes,
		&skips,
		&br.PurchaserName,
		&br.PurchaserEmail,
		&br.PurchaserPhone,
		&br.BundleTitle,
		&br.PriceAgorot,
		&br.Pickup,
		&br.Medical,
		&br.Notes,
		&br.PaymentIntentID,
		&br.CreatedAt,
		&br.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(outcomes, &br.EventOutcomes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event outcomes: %w", err)
	}
	if err := json.Unmarshal(skips, &br.SkippedEvents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal skipped events: %w", err)
	}

	return br, nil
}

func (r *BundleRegistrationRepository) GetByUserID(ctx context.Context, userID int64) ([]models.BundleRegistration, error) {
	query := `
		SELECT id, bundle_id, user_id, status, payment_status,
		       event_outcomes, skipped_events,
		       purchaser_name, purchaser_email, purchaser_phone,
		       bundle_title, price_agorot, pickup, medical, notes,
		       payment_intent_id, created_at, updated_at
		FROM bundle_registrations
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.BundleRegistration
	for rows.Next() {
		var br models.BundleRegistration
		var outcomes, skips []byte
		err := rows.Scan(
			&br.ID,
			&br.BundleID,
			&br.UserID,
			&br.Status,
			&br.PaymentStatus,
			&outcomes,
			&skips,
			&br.PurchaserName,
			&br.PurchaserEmail,
			&br.PurchaserPhone,
			&br.BundleTitle,
			&br.PriceAgorot,
			&br.Pickup,
			&br.Medical,
			&br.Notes,
			&br.PaymentIntentID,
			&br.CreatedAt,
			&br.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(outcomes, &br.EventOutcomes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event outcomes: %w", err)
		}
		if err := json.Unmarshal(skips, &br.SkippedEvents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skipped events: %w", err)
		}
		result = append(result, br)
	}

	return result, rows.Err()
}

// SetPaymentIntent stores the intent ID opened at the payment gateway
func (r *BundleRegistrationRepository) SetPaymentIntent(ctx context.Context, id int64, intentID string) error {
	query := `
		UPDATE bundle_registrations
		SET payment_intent_id = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, intentID, id)
	return err
}

// UpdateStatus moves the aggregate through its pending → paid/cancelled transitions
func (r *BundleRegistrationRepository) UpdateStatus(ctx context.Context, id int64, status, paymentStatus string) error {
	query := `
		UPDATE bundle_registrations
		SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, status, paymentStatus, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
