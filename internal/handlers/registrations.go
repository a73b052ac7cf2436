package handlers

import (
	"net/http"

	"kehila/internal/middleware"
	"kehila/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterEvent - POST /api/events/:id/register
// Регистрация аутентифицированного пользователя на одиночное событие
func (h *Handlers) RegisterEvent(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}

	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.RegisterEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Registrations.Register(c.Request.Context(), userID, eventID, &req)
	if err != nil {
		respondError(c, err, "Failed to register for event")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListRegistrations - GET /api/registrations
// Регистрации текущего пользователя, одиночные и пакетные
func (h *Handlers) ListRegistrations(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	regs, bundleRegs, err := h.services.Registrations.ListOwn(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to list registrations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"registrations":        regs,
		"bundle_registrations": bundleRegs,
	})
}

// CancelRegistration - PATCH /api/registrations/:id/cancel
// Отмена собственной регистрации
func (h *Handlers) CancelRegistration(c *gin.Context) {
	registrationID, ok := pathID(c)
	if !ok {
		return
	}

	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.services.Registrations.Cancel(c.Request.Context(), userID, registrationID); err != nil {
		respondError(c, err, "Failed to cancel registration")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
