package handlers

import (
	"net/http"

	"kehila/internal/models"

	"github.com/gin-gonic/gin"
)

// ListBundles - GET /api/bundles
// Получить список продаваемых пакетов
func (h *Handlers) ListBundles(c *gin.Context) {
	bundles, err := h.services.Bundles.ListPublished(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list bundles")
		return
	}

	c.JSON(http.StatusOK, bundles)
}

// GetBundle - GET /api/bundles/:id
// Получить пакет по идентификатору
func (h *Handlers) GetBundle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	bundle, err := h.services.Bundles.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get bundle")
		return
	}
	if bundle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bundle not found"})
		return
	}

	c.JSON(http.StatusOK, bundle)
}

// RegisterBundle - POST /api/bundles/register
// Покупка пакета: регистрация на все события пакета одним запросом.
// Токен передается в теле запроса, а не в заголовке.
func (h *Handlers) RegisterBundle(c *gin.Context) {
	var req models.RegisterBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Bundles.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to register for bundle")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListAllBundles - GET /api/admin/bundles
// Все пакеты, включая скрытые и истекшие
func (h *Handlers) ListAllBundles(c *gin.Context) {
	bundles, err := h.services.Bundles.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list bundles")
		return
	}

	c.JSON(http.StatusOK, bundles)
}

// CreateBundle - POST /api/admin/bundles
// Создать пакет событий
func (h *Handlers) CreateBundle(c *gin.Context) {
	var req models.CreateBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Bundles.CreateBundle(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create bundle")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// UpdateBundle - PUT /api/admin/bundles/:id
// Обновить пакет и его списки событий
func (h *Handlers) UpdateBundle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.CreateBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Bundles.UpdateBundle(c.Request.Context(), id, &req); err != nil {
		respondError(c, err, "Failed to update bundle")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// DeleteBundle - DELETE /api/admin/bundles/:id
// Удалить пакет вместе с его регистрациями
func (h *Handlers) DeleteBundle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Bundles.DeleteBundle(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete bundle")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// CancelBundleRegistration - PATCH /api/admin/bundle-registrations/:id/cancel
// Отмена покупки пакета администратором
func (h *Handlers) CancelBundleRegistration(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Bundles.CancelRegistration(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to cancel bundle registration")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
