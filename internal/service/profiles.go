package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "kehila/internal/errors"
	"kehila/internal/models"
)

var validRoles = map[string]bool{
	models.RoleAdmin:      true,
	models.RoleTrainer:    true,
	models.RoleInstructor: true,
	models.RoleParent:     true,
	models.RoleStudent:    true,
}

// profileDirectory is the profile storage used by ProfileService. The concrete
// UserRepository satisfies it; tests substitute fakes.
type profileDirectory interface {
	GetBySubject(ctx context.Context, subject string) (*models.UserProfile, error)
	GetByID(ctx context.Context, id int64) (*models.UserProfile, error)
	Create(ctx context.Context, user *models.UserProfile) error
	List(ctx context.Context) ([]models.UserProfile, error)
	ListByRoles(ctx context.Context, roles []string) ([]models.UserProfile, error)
	UpdateRole(ctx context.Context, id int64, role string) error
	UpdateGroups(ctx context.Context, id int64, groups []string) error
	UpdateContact(ctx context.Context, id int64, name, phone string) error
}

type ProfileService struct {
	userRepo profileDirectory
}

func NewProfileService(userRepo profileDirectory) *ProfileService {
	return &ProfileService{userRepo: userRepo}
}

// Bootstrap creates the profile on first login, or fills in name and phone on
// a profile auto-created during an earlier purchase
func (s *ProfileService) Bootstrap(ctx context.Context, subject, email string, req *models.BootstrapProfileRequest) (*models.UserProfile, error) {
	user, err := s.userRepo.GetBySubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if user == nil {
		user = &models.UserProfile{
			Subject: subject,
			Email:   email,
			Name:    req.Name,
			Phone:   req.Phone,
			Role:    models.RoleParent,
		}
		if user.Name == "" {
			user.Name = email
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		return user, nil
	}

	// Profile auto-created by a bundle purchase carries the email as a
	// placeholder name; bootstrap is the user's chance to complete it
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if err := s.userRepo.UpdateContact(ctx, user.ID, user.Name, user.Phone); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

func (s *ProfileService) Get(ctx context.Context, userID int64) (*models.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("profile not found: %w", apperrors.ErrNotFound)
	}
	return user, nil
}

func (s *ProfileService) List(ctx context.Context) ([]models.UserProfile, error) {
	return s.userRepo.List(ctx)
}

// ListTrainers returns staff profiles shown on the public team page
func (s *ProfileService) ListTrainers(ctx context.Context) ([]models.UserProfile, error) {
	return s.userRepo.ListByRoles(ctx, []string{models.RoleTrainer, models.RoleInstructor})
}

func (s *ProfileService) UpdateRole(ctx context.Context, userID int64, role string) error {
	if !validRoles[role] {
		return fmt.Errorf("unknown role %q: %w", role, apperrors.ErrValidation)
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user not found: %w", apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

// UpdateGroups replaces a user's group memberships. Groups drive announcement
// visibility and email targeting, so only admins reach this.
func (s *ProfileService) UpdateGroups(ctx context.Context, userID int64, groups []string) error {
	if groups == nil {
		groups = []string{}
	}

	if err := s.userRepo.UpdateGroups(ctx, userID, groups); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user not found: %w", apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to update groups: %w", err)
	}
	return nil
}
