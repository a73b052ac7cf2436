package service

import (
	"context"
	"fmt"

	apperrors "kehila/internal/errors"
	"kehila/internal/models"
	"kehila/internal/repository"
)

// ContentService covers the small site-content domains managed from the admin
// dashboard: WhatsApp group links, media URLs and the memorial section.
type ContentService struct {
	whatsappRepo *repository.WhatsAppGroupRepository
	mediaRepo    *repository.MediaAssetRepository
	memorialRepo *repository.MemorialRepository
}

func NewContentService(whatsappRepo *repository.WhatsAppGroupRepository, mediaRepo *repository.MediaAssetRepository, memorialRepo *repository.MemorialRepository) *ContentService {
	return &ContentService{
		whatsappRepo: whatsappRepo,
		mediaRepo:    mediaRepo,
		memorialRepo: memorialRepo,
	}
}

func (s *ContentService) UpsertWhatsAppGroup(ctx context.Context, req *models.WhatsAppGroupRequest) (*models.WhatsAppGroup, error) {
	group := &models.WhatsAppGroup{
		GroupKey: req.GroupKey,
		Name:     req.Name,
		ChatURL:  req.ChatURL,
		Active:   req.Active.Bool(),
	}

	if err := s.whatsappRepo.Upsert(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to save whatsapp group: %w", err)
	}

	return group, nil
}

func (s *ContentService) ListActiveWhatsAppGroups(ctx context.Context) ([]models.WhatsAppGroup, error) {
	return s.whatsappRepo.ListActive(ctx)
}

func (s *ContentService) ListWhatsAppGroups(ctx context.Context) ([]models.WhatsAppGroup, error) {
	return s.whatsappRepo.List(ctx)
}

func (s *ContentService) DeleteWhatsAppGroup(ctx context.Context, id int64) error {
	return s.whatsappRepo.Delete(ctx, id)
}

func (s *ContentService) CreateMediaAsset(ctx context.Context, req *models.MediaAssetRequest) (*models.MediaAsset, error) {
	kind := req.Kind
	if kind == "" {
		kind = "image"
	}

	asset := &models.MediaAsset{
		Title:    req.Title,
		URL:      req.URL,
		Kind:     kind,
		Position: req.Position,
	}

	if err := s.mediaRepo.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to create media asset: %w", err)
	}

	return asset, nil
}

func (s *ContentService) ListMediaAssets(ctx context.Context) ([]models.MediaAsset, error) {
	return s.mediaRepo.List(ctx)
}

func (s *ContentService) DeleteMediaAsset(ctx context.Context, id int64) error {
	return s.mediaRepo.Delete(ctx, id)
}

func (s *ContentService) CreateMemorialItem(ctx context.Context, req *models.MemorialItemRequest) (*models.MemorialItem, error) {
	item := &models.MemorialItem{
		Name:      req.Name,
		Years:     req.Years,
		Story:     req.Story,
		ImageURL:  req.ImageURL,
		Published: req.Published.Bool(),
		Position:  req.Position,
	}

	if err := s.memorialRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create memorial item: %w", err)
	}

	return item, nil
}

// ListMemorial returns published items for the public memorial page
func (s *ContentService) ListMemorial(ctx context.Context) ([]models.MemorialItem, error) {
	return s.memorialRepo.ListPublished(ctx)
}

func (s *ContentService) ListAllMemorial(ctx context.Context) ([]models.MemorialItem, error) {
	return s.memorialRepo.ListAll(ctx)
}

func (s *ContentService) UpdateMemorialItem(ctx context.Context, id int64, req *models.MemorialItemRequest) error {
	item, err := s.memorialRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get memorial item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("memorial item not found: %w", apperrors.ErrNotFound)
	}

	item.Name = req.Name
	item.Years = req.Years
	item.Story = req.Story
	item.ImageURL = req.ImageURL
	item.Published = req.Published.Bool()
	item.Position = req.Position

	return s.memorialRepo.Update(ctx, item)
}

func (s *ContentService) DeleteMemorialItem(ctx context.Context, id int64) error {
	return s.memorialRepo.Delete(ctx, id)
}
