package handlers

import (
	"net/http"

	"kehila/internal/middleware"
	"kehila/internal/models"

	"github.com/gin-gonic/gin"
)

// BootstrapProfile - POST /api/profile/bootstrap
// Создание профиля при первом входе
func (h *Handlers) BootstrapProfile(c *gin.Context) {
	subject := c.GetString("subject")
	email := c.GetString("email")
	if subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.BootstrapProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.services.Profiles.Bootstrap(c.Request.Context(), subject, email, &req)
	if err != nil {
		respondError(c, err, "Failed to bootstrap profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetProfile - GET /api/profile
// Профиль текущего пользователя
func (h *Handlers) GetProfile(c *gin.Context) {
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

	c.JSON(http.StatusOK, user)
}

// ListUsers - GET /api/admin/users
// Список всех профилей
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.services.Profiles.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list users")
		return
	}

	c.JSON(http.StatusOK, users)
}

// ListTrainers - GET /api/admin/trainers
// Список тренеров и инструкторов
func (h *Handlers) ListTrainers(c *gin.Context) {
	trainers, err := h.services.Profiles.ListTrainers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list trainers")
		return
	}

	c.JSON(http.StatusOK, trainers)
}

// UpdateUserRole - PATCH /api/admin/users/:id/role
// Смена роли пользователя
func (h *Handlers) UpdateUserRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Profiles.UpdateRole(c.Request.Context(), id, req.Role); err != nil {
		respondError(c, err, "Failed to update role")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// UpdateUserGroups - PATCH /api/admin/users/:id/groups
// Замена групп пользователя
func (h *Handlers) UpdateUserGroups(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.UpdateGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Profiles.UpdateGroups(c.Request.Context(), id, req.Groups); err != nil {
		respondError(c, err, "Failed to update groups")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
