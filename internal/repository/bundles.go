package repository

import (
	"context"
	"database/sql"
	"fmt"

	"kehila/internal/database"
	"kehila/internal/models"
)

type BundleRepository struct {
	db *database.DB
}

func NewBundleRepository(db *database.DB) *BundleRepository {
	return &BundleRepository{db: db}
}

// Create inserts the bundle together with its ordered event lists in one transaction
func (r *BundleRepository) Create(ctx context.Context, bundle *models.Bundle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bundles (title, description, price_agorot, valid_until, published, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		bundle.Title,
		bundle.Description,
		bundle.PriceAgorot,
		bundle.ValidUntil,
		bundle.Published,
		bundle.Active,
	).Scan(&bundle.ID, &bundle.CreatedAt, &bundle.UpdatedAt)
	if err != nil {
		return err
	}

	if err := insertBundleEvents(ctx, tx, bundle.ID, bundle.EventIDs, false); err != nil {
		return err
	}
	if err := insertBundleEvents(ctx, tx, bundle.ID, bundle.ReplacementEventIDs, true); err != nil {
		return err
	}

	return tx.Commit()
}

func insertBundleEvents(ctx context.Context, tx *sql.Tx, bundleID int64, eventIDs []int64, replacement bool) error {
	query := `INSERT INTO bundle_events (bundle_id, event_id, position, replacement) VALUES ($1, $2, $3, $4)`
	for i, eventID := range eventIDs {
		if _, err := tx.ExecContext(ctx, query, bundleID, eventID, i, replacement); err != nil {
			return fmt.Errorf("failed to attach event %d: %w", eventID, err)
		}
	}
	return nil
}

func (r *BundleRepository) GetByID(ctx context.Context, id int64) (*models.Bundle, error) {
	bundle := &models.Bundle{}
	query := `
		SELECT id, title, description, price_agorot, valid_until, published, active, created_at, updated_at
		FROM bundles
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&bundle.ID,
		&bundle.Title,
		&bundle.Description,
		&bundle.PriceAgorot,
		&bundle.ValidUntil,
		&bundle.Published,
		&bundle.Active,
		&bundle.CreatedAt,
		&bundle.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadEventLists(ctx, bundle); err != nil {
		return nil, err
	}

	return bundle, nil
}

func (r *BundleRepository) loadEventLists(ctx context.Context, bundle *models.Bundle) error {
	query := `
		SELECT event_id, replacement
		FROM bundle_events
		WHERE bundle_id = $1
		ORDER BY replacement, position`

	rows, err := r.db.QueryContext(ctx, query, bundle.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var eventID int64
		var replacement bool
		if err := rows.Scan(&eventID, &replacement); err != nil {
			return err
		}
		if replacement {
			bundle.ReplacementEventIDs = append(bundle.ReplacementEventIDs, eventID)
		} else {
			bundle.EventIDs = append(bundle.EventIDs, eventID)
		}
	}

	return rows.Err()
}

// ListPublished returns purchasable bundles: published, active and still valid
func (r *BundleRepository) ListPublished(ctx context.Context) ([]models.Bundle, error) {
	query := `
		SELECT id, title, description, price_agorot, valid_until, published, active, created_at, updated_at
		FROM bundles
		WHERE published = TRUE AND active = TRUE
		  AND (valid_until IS NULL OR valid_until > NOW())
		ORDER BY id ASC`

	return r.queryBundles(ctx, query)
}

func (r *BundleRepository) ListAll(ctx context.Context) ([]models.Bundle, error) {
	query := `
		SELECT id, title, description, price_agorot, valid_until, published, active, created_at, updated_at
		FROM bundles
		ORDER BY id ASC`

	return r.queryBundles(ctx, query)
}

func (r *BundleRepository) queryBundles(ctx context.Context, query string, args ...interface{}) ([]models.Bundle, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bundles []models.Bundle
	for rows.Next() {
		var bundle models.Bundle
		err := rows.Scan(
			&bundle.ID,
			&bundle.Title,
			&bundle.Description,
			&bundle.PriceAgorot,
			&bundle.ValidUntil,
			&bundle.Published,
			&bundle.Active,
			&bundle.CreatedAt,
			&bundle.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, bundle)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bundles {
		if err := r.loadEventLists(ctx, &bundles[i]); err != nil {
			return nil, err
		}
	}

	return bundles, nil
}

// Update rewrites the bundle row and replaces its event lists
func (r *BundleRepository) Update(ctx context.Context, bundle *models.Bundle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE bundles
		SET title = $1, description = $2, price_agorot = $3, valid_until = $4,
		    published = $5, active = $6, updated_at = NOW()
		WHERE id = $7`

	res, err := tx.ExecContext(ctx, query,
		bundle.Title,
		bundle.Description,
		bundle.PriceAgorot,
		bundle.ValidUntil,
		bundle.Published,
		bundle.Active,
		bundle.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bundle_events WHERE bundle_id = $1`, bundle.ID); err != nil {
		return err
	}
	if err := insertBundleEvents(ctx, tx, bundle.ID, bundle.EventIDs, false); err != nil {
		return err
	}
	if err := insertBundleEvents(ctx, tx, bundle.ID, bundle.ReplacementEventIDs, true); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes the bundle; bundle_events, bundle_registrations and their
// member registrations go with it via ON DELETE CASCADE in one statement.
func (r *BundleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bundles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
