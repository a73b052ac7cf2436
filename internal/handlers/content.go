package handlers

import (
	"net/http"

	"kehila/internal/models"

	"github.com/gin-gonic/gin"
)

// WhatsApp group links

// ListWhatsAppGroups - GET /api/whatsapp-groups
// Активные ссылки на группы WhatsApp
func (h *Handlers) ListWhatsAppGroups(c *gin.Context) {
	groups, err := h.services.Content.ListActiveWhatsAppGroups(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list whatsapp groups")
		return
	}

	c.JSON(http.StatusOK, groups)
}

// ListAllWhatsAppGroups - GET /api/admin/whatsapp-groups
func (h *Handlers) ListAllWhatsAppGroups(c *gin.Context) {
	groups, err := h.services.Content.ListWhatsAppGroups(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list whatsapp groups")
		return
	}

	c.JSON(http.StatusOK, groups)
}

// UpsertWhatsAppGroup - POST /api/admin/whatsapp-groups
// Создать или заменить ссылку для ключа группы
func (h *Handlers) UpsertWhatsAppGroup(c *gin.Context) {
	var req models.WhatsAppGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.services.Content.UpsertWhatsAppGroup(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to save whatsapp group")
		return
	}

	c.JSON(http.StatusOK, group)
}

// DeleteWhatsAppGroup - DELETE /api/admin/whatsapp-groups/:id
func (h *Handlers) DeleteWhatsAppGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Content.DeleteWhatsAppGroup(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete whatsapp group")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Media assets

// ListMediaAssets - GET /api/admin/media
func (h *Handlers) ListMediaAssets(c *gin.Context) {
	assets, err := h.services.Content.ListMediaAssets(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list media assets")
		return
	}

	c.JSON(http.StatusOK, assets)
}

// CreateMediaAsset - POST /api/admin/media
func (h *Handlers) CreateMediaAsset(c *gin.Context) {
	var req models.MediaAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asset, err := h.services.Content.CreateMediaAsset(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create media asset")
		return
	}

	c.JSON(http.StatusCreated, asset)
}

// DeleteMediaAsset - DELETE /api/admin/media/:id
func (h *Handlers) DeleteMediaAsset(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Content.DeleteMediaAsset(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete media asset")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Memorial section

// ListMemorial - GET /api/memorial
// Опубликованные записи мемориального раздела
func (h *Handlers) ListMemorial(c *gin.Context) {
	items, err := h.services.Content.ListMemorial(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list memorial items")
		return
	}

	c.JSON(http.StatusOK, items)
}

// ListAllMemorial - GET /api/admin/memorial
func (h *Handlers) ListAllMemorial(c *gin.Context) {
	items, err := h.services.Content.ListAllMemorial(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list memorial items")
		return
	}

	c.JSON(http.StatusOK, items)
}

// CreateMemorialItem - POST /api/admin/memorial
func (h *Handlers) CreateMemorialItem(c *gin.Context) {
	var req models.MemorialItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.services.Content.CreateMemorialItem(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create memorial item")
		return
	}

	c.JSON(http.StatusCreated, item)
}

// UpdateMemorialItem - PUT /api/admin/memorial/:id
func (h *Handlers) UpdateMemorialItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.MemorialItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Content.UpdateMemorialItem(c.Request.Context(), id, &req); err != nil {
		respondError(c, err, "Failed to update memorial item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// DeleteMemorialItem - DELETE /api/admin/memorial/:id
func (h *Handlers) DeleteMemorialItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Content.DeleteMemorialItem(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete memorial item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
