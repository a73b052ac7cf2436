package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"kehila/internal/cache"
	apperrors "kehila/internal/errors"
	"kehila/internal/external"
	"kehila/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services     *service.Services
	valkeyClient *cache.ValkeyClient
	emailClient  *external.EmailClient
}

func NewHandlers(services *service.Services, valkeyClient *cache.ValkeyClient, emailClient *external.EmailClient) *Handlers {
	return &Handlers{
		services:     services,
		valkeyClient: valkeyClient,
		emailClient:  emailClient,
	}
}

// respondError maps the service error taxonomy onto HTTP status codes.
// Unknown errors are logged and answered with a generic 500 body.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		slog.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "details": err.Error()})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
