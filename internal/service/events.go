package service

import (
	"context"
	"fmt"

	apperrors "kehila/internal/errors"
	"kehila/internal/logger"
	"kehila/internal/models"
	"kehila/internal/repository"
	"kehila/internal/search"
)

type EventService struct {
	eventRepo  *repository.EventRepository
	regRepo    *repository.RegistrationRepository
	esClient   *search.ElasticsearchClient
	natsClient eventPublisher
}

func NewEventService(eventRepo *repository.EventRepository, regRepo *repository.RegistrationRepository, esClient *search.ElasticsearchClient, natsClient eventPublisher) *EventService {
	return &EventService{
		eventRepo:  eventRepo,
		regRepo:    regRepo,
		esClient:   esClient,
		natsClient: natsClient,
	}
}

func (s *EventService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.CreateEventResponse, error) {
	status := req.Status
	if status == "" {
		status = models.EventStatusActive
	}

	event := &models.Event{
		Title:            req.Title,
		Description:      req.Description,
		StartsAt:         req.StartsAt,
		Location:         req.Location,
		Capacity:         req.Capacity,
		PriceAgorot:      req.PriceAgorot,
		Published:        req.Published.Bool(),
		Status:           status,
		Trainers:         req.Trainers,
		VisibilityGroups: req.VisibilityGroups,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.reindex(ctx, event)

	return &models.CreateEventResponse{ID: event.ID}, nil
}

// List returns events for the public listing. Text search goes through
// Elasticsearch when it is configured; otherwise PostgreSQL full-text search
// serves as the fallback.
func (s *EventService) List(ctx context.Context, query, date string, page, pageSize int, publishedOnly bool) ([]models.ListEventsResponseItem, error) {
	var events []models.Event
	var err error

	if s.esClient != nil && query != "" && publishedOnly {
		events, err = s.esClient.Search(ctx, query, date, page, pageSize)
		if err != nil {
			logger.WithContext(ctx).Error("Elasticsearch search failed, falling back to database",
				"error", err,
				"query", query)
			events, err = s.eventRepo.List(ctx, query, date, page, pageSize, publishedOnly)
		}
	} else {
		events, err = s.eventRepo.List(ctx, query, date, page, pageSize, publishedOnly)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	result := make([]models.ListEventsResponseItem, len(events))
	for i, event := range events {
		result[i] = models.ListEventsResponseItem{
			ID:          event.ID,
			Title:       event.Title,
			StartsAt:    event.StartsAt,
			Location:    event.Location,
			PriceAgorot: event.PriceAgorot,
			Status:      event.Status,
		}
	}

	return result, nil
}

func (s *EventService) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event not found: %w", apperrors.ErrNotFound)
	}
	return event, nil
}

func (s *EventService) Update(ctx context.Context, id int64, req *models.CreateEventRequest) error {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return fmt.Errorf("event not found: %w", apperrors.ErrNotFound)
	}

	event.Title = req.Title
	event.Description = req.Description
	event.StartsAt = req.StartsAt
	event.Location = req.Location
	event.Capacity = req.Capacity
	event.PriceAgorot = req.PriceAgorot
	event.Published = req.Published.Bool()
	if req.Status != "" {
		event.Status = req.Status
	}
	event.Trainers = req.Trainers
	event.VisibilityGroups = req.VisibilityGroups

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	s.reindex(ctx, event)

	return nil
}

// Delete removes the event and its registrations, and drops it from the
// search index best-effort.
func (s *EventService) Delete(ctx context.Context, id int64) error {
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return err
	}

	if s.esClient != nil {
		if err := s.esClient.DeleteEvent(ctx, id); err != nil {
			logger.WithContext(ctx).Error("Failed to remove event from search index",
				"error", err,
				"event_id", id)
		}
	}

	return nil
}

// Analytics returns registration counts and revenue for one event
func (s *EventService) Analytics(ctx context.Context, id int64) (*models.AnalyticsResponse, error) {
	analytics, err := s.regRepo.Analytics(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to compute analytics: %w", err)
	}
	if analytics == nil {
		return nil, fmt.Errorf("event not found: %w", apperrors.ErrNotFound)
	}
	return analytics, nil
}

// reindex pushes the event into the search index; indexing failures never
// fail the write that triggered them
func (s *EventService) reindex(ctx context.Context, event *models.Event) {
	if s.esClient == nil {
		return
	}
	if err := s.esClient.IndexEvent(ctx, event); err != nil {
		logger.WithContext(ctx).Error("Failed to index event",
			"error", err,
			"event_id", event.ID)
	}
}
