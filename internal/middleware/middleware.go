package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kehila/internal/cache"
	"kehila/internal/external"
	"kehila/internal/models"
	"kehila/internal/repository"

	"github.com/gin-gonic/gin"
)

// Ctx key and helpers for authenticated user id
// Using unexported type to avoid collisions

type ctxKey string

const userIDKey ctxKey = "user_id"

func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// CORS middleware для обработки CORS запросов
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}

		c.Next()
	}
}

// Logger middleware для структурированного логирования запросов
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		userID, exists := c.Get("user_id")

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}

		if exists {
			logFields = append(logFields, "user_id", userID)
		}

		if c.Writer.Status() >= 400 {
			if len(c.Errors) > 0 {
				logFields = append(logFields, "error", c.Errors.String())
			}
			slog.Error("Request completed with error", logFields...)
		}
	}
}

// Recovery middleware для восстановления после паники с детальным логированием
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		slog.Error("PANIC recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
	})
}

// TokenAuth аутентифицирует пользователя по Bearer токену, сверяя его у
// провайдера идентификации. Проверенные токены кешируются в Valkey с коротким
// TTL, чтобы не ходить к провайдеру на каждый запрос.
func TokenAuth(identityClient *external.IdentityClient, userRepo *repository.UserRepository, valkeyClient *cache.ValkeyClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx := c.Request.Context()

		// Сначала пытаемся найти токен в кеше Valkey
		if valkeyClient != nil {
			if userID, err := valkeyClient.GetUserIDByToken(ctx, token); err == nil {
				setAuthenticatedUser(c, userID)
				c.Next()
				return
			}
		}

		identity, err := identityClient.VerifyToken(ctx, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		user, err := userRepo.GetBySubject(ctx, identity.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if user == nil {
			// Профиль создается через bootstrap; до этого момента subject и
			// email кладем в контекст, чтобы bootstrap мог их прочитать
			c.Set("subject", identity.Subject)
			c.Set("email", identity.Email)
			c.Next()
			return
		}

		if valkeyClient != nil {
			if err := valkeyClient.SetUserIDByToken(ctx, token, user.ID); err != nil {
				slog.Warn("Failed to cache verified token", "error", err)
			}
		}

		c.Set("subject", identity.Subject)
		c.Set("email", identity.Email)
		setAuthenticatedUser(c, user.ID)
		c.Next()
	}
}

// RequireProfile отклоняет запросы аутентифицированных пользователей без профиля
func RequireProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserIDFromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Profile required, call bootstrap first"})
			return
		}
		c.Next()
	}
}

// RequireAdmin пропускает только пользователей с ролью admin
func RequireAdmin(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		user, err := userRepo.GetByID(c.Request.Context(), userID)
		if err != nil || user == nil || user.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func setAuthenticatedUser(c *gin.Context, userID int64) {
	c.Set("user_id", userID)
	c.Request = c.Request.WithContext(ContextWithUserID(c.Request.Context(), userID))
}
