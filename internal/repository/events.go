package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"kehila/internal/database"
	"kehila/internal/models"

	"github.com/lib/pq"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, starts_at, location, capacity, price_agorot,
	       published, status, trainers, visibility_groups, created_at, updated_at`

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, description, starts_at, location, capacity, price_agorot,
		                    published, status, trainers, visibility_groups)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.StartsAt,
		event.Location,
		event.Capacity,
		event.PriceAgorot,
		event.Published,
		event.Status,
		pq.Array(event.Trainers),
		pq.Array(event.VisibilityGroups),
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.StartsAt,
		&event.Location,
		&event.Capacity,
		&event.PriceAgorot,
		&event.Published,
		&event.Status,
		pq.Array(&event.Trainers),
		pq.Array(&event.VisibilityGroups),
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

// List returns events filtered by search query and date, newest scheduling first.
// publishedOnly hides drafts and unpublished events from the public listing.
func (r *EventRepository) List(ctx context.Context, query, date string, page, pageSize int, publishedOnly bool) ([]models.Event, error) {
	var args []interface{}
	argIndex := 1
	var searchQueryArgIndex int

	sqlQuery := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`

	if publishedOnly {
		sqlQuery += ` AND published = TRUE AND status <> 'draft'`
	}

	// Full-text fallback used when Elasticsearch is not configured. The
	// 'simple' config avoids language-specific stemming, which does not
	// exist for Hebrew in stock PostgreSQL.
	if query != "" {
		searchQueryArgIndex = argIndex
		sqlQuery += fmt.Sprintf(
			" AND to_tsvector('simple', title || ' ' || coalesce(description, '')) @@ to_tsquery('simple', $%d)",
			argIndex)
		args = append(args, prepareSearchQuery(query))
		argIndex++
	}

	if date != "" {
		sqlQuery += fmt.Sprintf(" AND DATE(starts_at) = $%d", argIndex)
		args = append(args, date)
		argIndex++
	}

	if query != "" {
		sqlQuery += fmt.Sprintf(
			" ORDER BY ts_rank(to_tsvector('simple', title), to_tsquery('simple', $%d)) DESC, starts_at ASC",
			searchQueryArgIndex)
	} else {
		sqlQuery += " ORDER BY starts_at ASC NULLS LAST, id ASC"
	}

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		sqlQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.StartsAt,
			&event.Location,
			&event.Capacity,
			&event.PriceAgorot,
			&event.Published,
			&event.Status,
			pq.Array(&event.Trainers),
			pq.Array(&event.VisibilityGroups),
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, starts_at = $3, location = $4,
		    capacity = $5, price_agorot = $6, published = $7, status = $8,
		    trainers = $9, visibility_groups = $10, updated_at = $11
		WHERE id = $12`

	event.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.StartsAt,
		event.Location,
		event.Capacity,
		event.PriceAgorot,
		event.Published,
		event.Status,
		pq.Array(event.Trainers),
		pq.Array(event.VisibilityGroups),
		event.UpdatedAt,
		event.ID,
	)

	return err
}

// Delete removes an event and, through ON DELETE CASCADE, every registration
// and bundle membership referencing it.
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// prepareSearchQuery formats a search query for PostgreSQL full-text search
func prepareSearchQuery(query string) string {
	if containsSearchOperators(query) {
		return query
	}

	words := strings.Fields(strings.TrimSpace(query))
	if len(words) == 0 {
		return ""
	}

	var formattedWords []string
	for _, word := range words {
		if word != "" {
			formattedWords = append(formattedWords, word+":*")
		}
	}

	return strings.Join(formattedWords, " & ")
}

// containsSearchOperators checks if the search query contains PostgreSQL search operators
func containsSearchOperators(query string) bool {
	operators := []string{"&", "|", "!", "(", ")", ":", "*"}
	for _, op := range operators {
		if strings.Contains(query, op) {
			return true
		}
	}
	return false
}
