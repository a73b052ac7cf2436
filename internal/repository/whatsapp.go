package repository

import (
	"context"
	"database/sql"

	"kehila/internal/database"
	"kehila/internal/models"
)

type WhatsAppGroupRepository struct {
	db *database.DB
}

func NewWhatsAppGroupRepository(db *database.DB) *WhatsAppGroupRepository {
	return &WhatsAppGroupRepository{db: db}
}

// Upsert creates or replaces the link for a group key. One row per key.
func (r *WhatsAppGroupRepository) Upsert(ctx context.Context, g *models.WhatsAppGroup) error {
	query := `
		INSERT INTO whatsapp_groups (group_key, name, chat_url, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_key) DO UPDATE
		SET name = EXCLUDED.name, chat_url = EXCLUDED.chat_url, active = EXCLUDED.active
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		g.GroupKey,
		g.Name,
		g.ChatURL,
		g.Active,
	).Scan(&g.ID, &g.CreatedAt)
}

// ListActive returns links shown to members
func (r *WhatsAppGroupRepository) ListActive(ctx context.Context) ([]models.WhatsAppGroup, error) {
	query := `
		SELECT id, group_key, name, chat_url, active, created_at
		FROM whatsapp_groups
		WHERE active = TRUE
		ORDER BY name ASC`

	return r.queryGroups(ctx, query)
}

func (r *WhatsAppGroupRepository) List(ctx context.Context) ([]models.WhatsAppGroup, error) {
	query := `
		SELECT id, group_key, name, chat_url, active, created_at
		FROM whatsapp_groups
		ORDER BY name ASC`

	return r.queryGroups(ctx, query)
}

func (r *WhatsAppGroupRepository) queryGroups(ctx context.Context, query string) ([]models.WhatsAppGroup, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.WhatsAppGroup
	for rows.Next() {
		var g models.WhatsAppGroup
		if err := rows.Scan(&g.ID, &g.GroupKey, &g.Name, &g.ChatURL, &g.Active, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

func (r *WhatsAppGroupRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM whatsapp_groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
