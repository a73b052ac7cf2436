package service

import (
	"context"
	"fmt"
	"time"

	apperrors "kehila/internal/errors"
	"kehila/internal/models"
	"kehila/internal/repository"
)

type AnnouncementService struct {
	announcementRepo *repository.AnnouncementRepository
	natsClient       eventPublisher
}

func NewAnnouncementService(announcementRepo *repository.AnnouncementRepository, natsClient eventPublisher) *AnnouncementService {
	return &AnnouncementService{
		announcementRepo: announcementRepo,
		natsClient:       natsClient,
	}
}

func (s *AnnouncementService) Create(ctx context.Context, req *models.CreateAnnouncementRequest) (*models.Announcement, error) {
	targetGroups := req.TargetGroups
	if len(targetGroups) == 0 {
		targetGroups = []string{models.GroupAll}
	}

	announcementType := req.Type
	if announcementType == "" {
		announcementType = "general"
	}

	a := &models.Announcement{
		Title:        req.Title,
		Content:      req.Content,
		TargetGroups: targetGroups,
		Type:         announcementType,
		Active:       req.Active.Bool(),
	}

	if err := s.announcementRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}

	return a, nil
}

// ListVisible returns active announcements targeted at any of the user's
// groups, or at everyone via the ALL sentinel
func (s *AnnouncementService) ListVisible(ctx context.Context, userGroups []string) ([]models.Announcement, error) {
	all, err := s.announcementRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}

	visible := []models.Announcement{}
	for _, a := range all {
		if a.VisibleTo(userGroups) {
			visible = append(visible, a)
		}
	}

	return visible, nil
}

func (s *AnnouncementService) ListAll(ctx context.Context) ([]models.Announcement, error) {
	return s.announcementRepo.ListAll(ctx)
}

func (s *AnnouncementService) Update(ctx context.Context, id int64, req *models.CreateAnnouncementRequest) error {
	a, err := s.announcementRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get announcement: %w", err)
	}
	if a == nil {
		return fmt.Errorf("announcement not found: %w", apperrors.ErrNotFound)
	}

	a.Title = req.Title
	a.Content = req.Content
	if len(req.TargetGroups) > 0 {
		a.TargetGroups = req.TargetGroups
	}
	if req.Type != "" {
		a.Type = req.Type
	}
	a.Active = req.Active.Bool()

	return s.announcementRepo.Update(ctx, a)
}

func (s *AnnouncementService) Delete(ctx context.Context, id int64) error {
	return s.announcementRepo.Delete(ctx, id)
}

// Send queues the announcement for email dispatch. The notification worker
// performs the actual sending and records recipient counts.
func (s *AnnouncementService) Send(ctx context.Context, id int64) error {
	a, err := s.announcementRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get announcement: %w", err)
	}
	if a == nil {
		return fmt.Errorf("announcement not found: %w", apperrors.ErrNotFound)
	}
	if a.EmailSent {
		return fmt.Errorf("announcement was already sent: %w", apperrors.ErrConflict)
	}

	publishedEvent := models.AnnouncementPublishedEvent{
		AnnouncementID: a.ID,
		Timestamp:      time.Now(),
	}
	if err := s.natsClient.Publish(models.EventAnnouncementPublished, publishedEvent); err != nil {
		return fmt.Errorf("failed to queue announcement dispatch: %w", err)
	}

	return nil
}
