package handlers

import (
	"net/http"

	"kehila/internal/middleware"
	"kehila/internal/models"

	"github.com/gin-gonic/gin"
)

// ListAnnouncements - GET /api/announcements
// Активные объявления, видимые группам текущего пользователя
func (h *Handlers) ListAnnouncements(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.services.Profiles.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to get profile")
		return
	}

	announcements, err := h.services.Announcements.ListVisible(c.Request.Context(), user.Groups)
	if err != nil {
		respondError(c, err, "Failed to list announcements")
		return
	}

	c.JSON(http.StatusOK, announcements)
}

// ListAllAnnouncements - GET /api/admin/announcements
// Все объявления, включая неактивные
func (h *Handlers) ListAllAnnouncements(c *gin.Context) {
	announcements, err := h.services.Announcements.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list announcements")
		return
	}

	c.JSON(http.StatusOK, announcements)
}

// CreateAnnouncement - POST /api/admin/announcements
// Создать объявление
func (h *Handlers) CreateAnnouncement(c *gin.Context) {
	var req models.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	announcement, err := h.services.Announcements.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create announcement")
		return
	}

	c.JSON(http.StatusCreated, announcement)
}

// UpdateAnnouncement - PUT /api/admin/announcements/:id
// Обновить объявление
func (h *Handlers) UpdateAnnouncement(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Announcements.Update(c.Request.Context(), id, &req); err != nil {
		respondError(c, err, "Failed to update announcement")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// DeleteAnnouncement - DELETE /api/admin/announcements/:id
// Удалить объявление
func (h *Handlers) DeleteAnnouncement(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Announcements.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete announcement")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// SendAnnouncement - POST /api/admin/announcements/:id/send
// Поставить объявление в очередь на email-рассылку
func (h *Handlers) SendAnnouncement(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Announcements.Send(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to queue announcement")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
