package repository

import (
	"context"
	"database/sql"

	"kehila/internal/database"
	"kehila/internal/models"

	"github.com/lib/pq"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (subject, email, name, phone, role, groups)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		user.Subject,
		user.Email,
		user.Name,
		user.Phone,
		user.Role,
		pq.Array(user.Groups),
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.UserProfile, error) {
	user := &models.UserProfile{}
	query := `
		SELECT id, subject, email, name, phone, role, groups, created_at
		FROM user_profiles
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Subject,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.Role,
		pq.Array(&user.Groups),
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

func (r *UserRepository) GetBySubject(ctx context.Context, subject string) (*models.UserProfile, error) {
	user := &models.UserProfile{}
	query := `
		SELECT id, subject, email, name, phone, role, groups, created_at
		FROM user_profiles
		WHERE subject = $1`

	err := r.db.QueryRowContext(ctx, query, subject).Scan(
		&user.ID,
		&user.Subject,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.Role,
		pq.Array(&user.Groups),
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

func (r *UserRepository) List(ctx context.Context) ([]models.UserProfile, error) {
	query := `
		SELECT id, subject, email, name, phone, role, groups, created_at
		FROM user_profiles
		ORDER BY created_at DESC`

	return r.queryProfiles(ctx, query)
}

// ListByRoles returns profiles holding any of the given roles
func (r *UserRepository) ListByRoles(ctx context.Context, roles []string) ([]models.UserProfile, error) {
	query := `
		SELECT id, subject, email, name, phone, role, groups, created_at
		FROM user_profiles
		WHERE role = ANY($1)
		ORDER BY name ASC`

	return r.queryProfiles(ctx, query, pq.Array(roles))
}

// ListByGroups returns profiles belonging to any of the given groups.
// An empty groups argument returns every profile (the ALL sentinel case).
func (r *UserRepository) ListByGroups(ctx context.Context, groups []string) ([]models.UserProfile, error) {
	if len(groups) == 0 {
		return r.List(ctx)
	}

	query := `
		SELECT id, subject, email, name, phone, role, groups, created_at
		FROM user_profiles
		WHERE groups && $1
		ORDER BY name ASC`

	return r.queryProfiles(ctx, query, pq.Array(groups))
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role string) error {
	query := `UPDATE user_profiles SET role = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *UserRepository) UpdateGroups(ctx context.Context, id int64, groups []string) error {
	query := `UPDATE user_profiles SET groups = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, pq.Array(groups), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *UserRepository) UpdateContact(ctx context.Context, id int64, name, phone string) error {
	query := `UPDATE user_profiles SET name = $1, phone = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, name, phone, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *UserRepository) queryProfiles(ctx context.Context, query string, args ...interface{}) ([]models.UserProfile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.UserProfile
	for rows.Next() {
		var user models.UserProfile
		err := rows.Scan(
			&user.ID,
			&user.Subject,
			&user.Email,
			&user.Name,
			&user.Phone,
			&user.Role,
			pq.Array(&user.Groups),
			&user.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
