package repository

import (
	"context"
	"database/sql"

	"kehila/internal/database"
	"kehila/internal/models"

	"github.com/lib/pq"
)

type AnnouncementRepository struct {
	db *database.DB
}

func NewAnnouncementRepository(db *database.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

const announcementColumns = `id, title, content, target_groups, type, active,
	       email_sent, email_sent_at, email_recipients, email_failures,
	       created_at, updated_at`

func (r *AnnouncementRepository) Create(ctx context.Context, a *models.Announcement) error {
	query := `
		INSERT INTO announcements (title, content, target_groups, type, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		a.Title,
		a.Content,
		pq.Array(a.TargetGroups),
		a.Type,
		a.Active,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *AnnouncementRepository) GetByID(ctx context.Context, id int64) (*models.Announcement, error) {
	a := &models.Announcement{}
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.Title,
		&a.Content,
		pq.Array(&a.TargetGroups),
		&a.Type,
		&a.Active,
		&a.EmailSent,
		&a.EmailSentAt,
		&a.EmailRecipients,
		&a.EmailFailures,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return a, err
}

// ListActive returns currently shown announcements, newest first
func (r *AnnouncementRepository) ListActive(ctx context.Context) ([]models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE active = TRUE ORDER BY created_at DESC`
	return r.queryAnnouncements(ctx, query)
}

func (r *AnnouncementRepository) ListAll(ctx context.Context) ([]models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements ORDER BY created_at DESC`
	return r.queryAnnouncements(ctx, query)
}

func (r *AnnouncementRepository) queryAnnouncements(ctx context.Context, query string, args ...interface{}) ([]models.Announcement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Announcement
	for rows.Next() {
		var a models.Announcement
		err := rows.Scan(
			&a.ID,
			&a.Title,
			&a.Content,
			pq.Array(&a.TargetGroups),
			&a.Type,
			&a.Active,
			&a.EmailSent,
			&a.EmailSentAt,
			&a.EmailRecipients,
			&a.EmailFailures,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}

	return items, rows.Err()
}

func (r *AnnouncementRepository) Update(ctx context.Context, a *models.Announcement) error {
	query := `
		UPDATE announcements
		SET title = $1, content = $2, target_groups = $3, type = $4, active = $5, updated_at = NOW()
		WHERE id = $6`

	res, err := r.db.ExecContext(ctx, query,
		a.Title,
		a.Content,
		pq.Array(a.TargetGroups),
		a.Type,
		a.Active,
		a.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkEmailSent records the dispatch stats after the announcement mailing ran
func (r *AnnouncementRepository) MarkEmailSent(ctx context.Context, id int64, recipients, failures int) error {
	query := `
		UPDATE announcements
		SET email_sent = TRUE, email_sent_at = NOW(),
		    email_recipients = $1, email_failures = $2, updated_at = NOW()
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, recipients, failures, id)
	return err
}

func (r *AnnouncementRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
