package repository

import (
	"context"
	"database/sql"

	"kehila/internal/database"
	"kehila/internal/models"
)

type MemorialRepository struct {
	db *database.DB
}

func NewMemorialRepository(db *database.DB) *MemorialRepository {
	return &MemorialRepository{db: db}
}

const memorialColumns = `id, name, years, story, image_url, published, position, created_at, updated_at`

func (r *MemorialRepository) Create(ctx context.Context, item *models.MemorialItem) error {
	query := `
		INSERT INTO memorial_items (name, years, story, image_url, published, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		item.Name,
		item.Years,
		item.Story,
		item.ImageURL,
		item.Published,
		item.Position,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (r *MemorialRepository) GetByID(ctx context.Context, id int64) (*models.MemorialItem, error) {
	item := &models.MemorialItem{}
	query := `SELECT ` + memorialColumns + ` FROM memorial_items WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.Name,
		&item.Years,
		&item.Story,
		&item.ImageURL,
		&item.Published,
		&item.Position,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return item, err
}

// ListPublished returns items shown on the memorial page
func (r *MemorialRepository) ListPublished(ctx context.Context) ([]models.MemorialItem, error) {
	query := `SELECT ` + memorialColumns + ` FROM memorial_items WHERE published = TRUE ORDER BY position ASC, id ASC`
	return r.queryItems(ctx, query)
}

func (r *MemorialRepository) ListAll(ctx context.Context) ([]models.MemorialItem, error) {
	query := `SELECT ` + memorialColumns + ` FROM memorial_items ORDER BY position ASC, id ASC`
	return r.queryItems(ctx, query)
}

func (r *MemorialRepository) queryItems(ctx context.Context, query string) ([]models.MemorialItem, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MemorialItem
	for rows.Next() {
		var item models.MemorialItem
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Years,
			&item.Story,
			&item.ImageURL,
			&item.Published,
			&item.Position,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *MemorialRepository) Update(ctx context.Context, item *models.MemorialItem) error {
	query := `
		UPDATE memorial_items
		SET name = $1, years = $2, story = $3, image_url = $4,
		    published = $5, position = $6, updated_at = NOW()
		WHERE id = $7`

	res, err := r.db.ExecContext(ctx, query,
		item.Name,
		item.Years,
		item.Story,
		item.ImageURL,
		item.Published,
		item.Position,
		item.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *MemorialRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memorial_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
