package repository

import (
	"context"
	"database/sql"
	"fmt"

	"kehila/internal/database"
	apperrors "kehila/internal/errors"
	"kehila/internal/models"

	"github.com/lib/pq"
)

type RegistrationRepository struct {
	db *database.DB
}

func NewRegistrationRepository(db *database.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, event_id, user_id, status, payment_status,
	       purchaser_name, purchaser_email, purchaser_phone,
	       pickup, medical, notes, bundle_registration_id, from_bundle,
	       checked_in_by, checked_in_at, created_at, updated_at`

// CreateIfCapacity inserts a registration only while the event's count of
// pending/paid registrations stays below capacity. The count and insert run
// in one statement, so concurrent registrants cannot both slip past the
// capacity check. Returns false when the event is full.
func (r *RegistrationRepository) CreateIfCapacity(ctx context.Context, reg *models.Registration, capacity int) (bool, error) {
	query := `
		INSERT INTO registrations (event_id, user_id, status, payment_status,
		                           purchaser_name, purchaser_email, purchaser_phone,
		                           pickup, medical, notes, bundle_registration_id, from_bundle)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		WHERE (SELECT COUNT(*) FROM registrations
		       WHERE event_id = $1 AND status IN ('pending', 'paid')) < $13
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		reg.EventID,
		reg.UserID,
		reg.Status,
		reg.PaymentStatus,
		reg.PurchaserName,
		reg.PurchaserEmail,
		reg.PurchaserPhone,
		reg.Pickup,
		reg.Medical,
		reg.Notes,
		reg.BundleRegistrationID,
		reg.FromBundle,
		capacity,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)

	if err == sql.ErrNoRows {
		// Conditional insert matched no row: the event filled up
		return false, nil
	}
	if isUniqueViolation(err, "registrations_active_uniq") {
		return false, fmt.Errorf("user already registered for event %d: %w", reg.EventID, apperrors.ErrConflict)
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id int64) (*models.Registration, error) {
	reg := &models.Registration{}
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&reg.Status,
		&reg.PaymentStatus,
		&reg.PurchaserName,
		&reg.PurchaserEmail,
		&reg.PurchaserPhone,
		&reg.Pickup,
		&reg.Medical,
		&reg.Notes,
		&reg.BundleRegistrationID,
		&reg.FromBundle,
		&reg.CheckedInBy,
		&reg.CheckedInAt,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return reg, err
}

func (r *RegistrationRepository) GetByUserID(ctx context.Context, userID int64) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		var reg models.Registration
		err := rows.Scan(
			&reg.ID,
			&reg.EventID,
			&reg.UserID,
			&reg.Status,
			&reg.PaymentStatus,
			&reg.PurchaserName,
			&reg.PurchaserEmail,
			&reg.PurchaserPhone,
			&reg.Pickup,
			&reg.Medical,
			&reg.Notes,
			&reg.BundleRegistrationID,
			&reg.FromBundle,
			&reg.CheckedInBy,
			&reg.CheckedInAt,
			&reg.CreatedAt,
			&reg.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}

	return regs, rows.Err()
}

// CountActiveByEvent counts pending/paid registrations for one event
func (r *RegistrationRepository) CountActiveByEvent(ctx context.Context, eventID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1 AND status IN ('pending', 'paid')`

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count)
	return count, err
}

// HasActiveByEventAndUser reports whether the purchaser already holds a
// non-cancelled registration for the event
func (r *RegistrationRepository) HasActiveByEventAndUser(ctx context.Context, eventID, userID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM registrations
			WHERE event_id = $1 AND user_id = $2 AND status <> 'cancelled'
		)`

	err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(&exists)
	return exists, err
}

// LinkToBundleRegistration stamps the parent bundle registration ID onto the
// member registrations created before the parent row existed
func (r *RegistrationRepository) LinkToBundleRegistration(ctx context.Context, registrationIDs []int64, bundleRegistrationID int64) error {
	if len(registrationIDs) == 0 {
		return nil
	}

	query := `
		UPDATE registrations
		SET bundle_registration_id = $1, updated_at = NOW()
		WHERE id = ANY($2)`

	_, err := r.db.ExecContext(ctx, query, bundleRegistrationID, pq.Array(registrationIDs))
	return err
}

func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id int64, status, paymentStatus string) error {
	query := `
		UPDATE registrations
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

// CancelByBundleRegistration cancels every still-active member registration of
// one bundle purchase. Zero affected rows is fine here: the purchase may have
// ended up with skips only.
func (r *RegistrationRepository) CancelByBundleRegistration(ctx context.Context, bundleRegistrationID int64) error {
	query := `
		UPDATE registrations
		SET status = 'cancelled', payment_status = 'cancelled', updated_at = NOW()
		WHERE bundle_registration_id = $1 AND status <> 'cancelled'`

	_, err := r.db.ExecContext(ctx, query, bundleRegistrationID)
	return err
}

// Analytics aggregates registration counts and revenue for one event
func (r *RegistrationRepository) Analytics(ctx context.Context, eventID int64) (*models.AnalyticsResponse, error) {
	event := models.AnalyticsResponse{EventID: eventID}
	query := `
		SELECT
			e.capacity,
			COUNT(r.id) FILTER (WHERE r.status IN ('pending', 'paid')),
			COUNT(r.id) FILTER (WHERE r.status = 'paid'),
			COUNT(r.id) FILTER (WHERE r.status = 'cancelled'),
			COALESCE(SUM(e.price_agorot) FILTER (WHERE r.status = 'paid'), 0)
		FROM events e
		LEFT JOIN registrations r ON r.event_id = e.id
		WHERE e.id = $1
		GROUP BY e.capacity`

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&event.Capacity,
		&event.ActiveCount,
		&event.PaidCount,
		&event.CancelledCount,
		&event.TotalRevenueAgorot,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	event.FreeSpots = event.Capacity - event.ActiveCount
	if event.FreeSpots < 0 {
		event.FreeSpots = 0
	}

	return &event, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique violation on
// the named constraint (SQLSTATE 23505)
func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	return pqErr.Code == "23505" && pqErr.Constraint == constraint
}
