package repository

import (
	"context"
	"database/sql"

	"kehila/internal/database"
	"kehila/internal/models"
)

type MediaAssetRepository struct {
	db *database.DB
}

func NewMediaAssetRepository(db *database.DB) *MediaAssetRepository {
	return &MediaAssetRepository{db: db}
}

func (r *MediaAssetRepository) Create(ctx context.Context, m *models.MediaAsset) error {
	query := `
		INSERT INTO media_assets (title, url, kind, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		m.Title,
		m.URL,
		m.Kind,
		m.Position,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *MediaAssetRepository) List(ctx context.Context) ([]models.MediaAsset, error) {
	query := `
		SELECT id, title, url, kind, position, created_at
		FROM media_assets
		ORDER BY position ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []models.MediaAsset
	for rows.Next() {
		var m models.MediaAsset
		if err := rows.Scan(&m.ID, &m.Title, &m.URL, &m.Kind, &m.Position, &m.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, m)
	}

	return assets, rows.Err()
}

func (r *MediaAssetRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media_assets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
