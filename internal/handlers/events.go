package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"kehila/internal/models"

	"github.com/gin-gonic/gin"
)

// ListEvents - GET /api/events
// Получить список опубликованных событий
func (h *Handlers) ListEvents(c *gin.Context) {
	query := c.Query("query")
	date := c.Query("date")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 50"})
		return
	}

	shouldCache := h.shouldCacheEventsRequest(query, date)

	// Try to get from cache if conditions are met and cache client is available
	if shouldCache && h.valkeyClient != nil {
		rawJSON, err := h.valkeyClient.GetEventsListRaw(c.Request.Context(), page, pageSize)
		if err == nil {
			// Cache hit - return raw JSON data directly
			c.Data(http.StatusOK, "application/json", rawJSON)
			return
		}
	}

	response, err := h.services.Events.List(c.Request.Context(), query, date, page, pageSize, true)
	if err != nil {
		respondError(c, err, "Failed to list events")
		return
	}

	if shouldCache && h.valkeyClient != nil {
		if err := h.valkeyClient.SetEventsList(c.Request.Context(), page, pageSize, response); err != nil {
			slog.Warn("Failed to cache events list", "error", err)
		}
	}

	c.JSON(http.StatusOK, response)
}

// shouldCacheEventsRequest determines if the request should be cached.
// Filtered listings are too variable to be worth caching.
func (h *Handlers) shouldCacheEventsRequest(query, date string) bool {
	return query == "" && date == ""
}

// GetEvent - GET /api/events/:id
// Получить событие по идентификатору
func (h *Handlers) GetEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	event, err := h.services.Events.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get event")
		return
	}

	c.JSON(http.StatusOK, event)
}

// CreateEvent - POST /api/admin/events
// Создать событие
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Events.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create event")
		return
	}

	h.invalidateEventsCache(c)

	c.JSON(http.StatusCreated, response)
}

// UpdateEvent - PUT /api/admin/events/:id
// Обновить событие
func (h *Handlers) UpdateEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Events.Update(c.Request.Context(), id, &req); err != nil {
		respondError(c, err, "Failed to update event")
		return
	}

	h.invalidateEventsCache(c)

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// DeleteEvent - DELETE /api/admin/events/:id
// Удалить событие вместе с регистрациями
func (h *Handlers) DeleteEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Events.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete event")
		return
	}

	h.invalidateEventsCache(c)

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// EventAnalytics - GET /api/admin/events/:id/analytics
// Аналитика регистраций по событию
func (h *Handlers) EventAnalytics(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	analytics, err := h.services.Events.Analytics(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to compute analytics")
		return
	}

	c.JSON(http.StatusOK, analytics)
}

func (h *Handlers) invalidateEventsCache(c *gin.Context) {
	if h.valkeyClient == nil {
		return
	}
	if err := h.valkeyClient.InvalidateEventsList(c.Request.Context()); err != nil {
		slog.Warn("Failed to invalidate events cache", "error", err)
	}
}
