package handlers

import (
	"net/http"

	"kehila/internal/external"
	"kehila/internal/models"

	"github.com/gin-gonic/gin"
)

// SendTestEmail - POST /api/admin/email/test
// Проверка доставки почты: отправляет тестовое письмо на указанный адрес
func (h *Handlers) SendTestEmail(c *gin.Context) {
	var req models.TestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.emailClient == nil || !h.emailClient.Configured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email delivery is not configured"})
		return
	}

	to := []external.Recipient{{Email: req.Email, Name: req.Name}}
	body := "<p dir=\"rtl\">זוהי הודעת בדיקה ממערכת הקהילה.</p>"

	if err := h.emailClient.Send(c.Request.Context(), to, "בדיקת מערכת דואר", body); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "test email failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
