package middleware

import (
	"conference_backend/internal/auth"
	"conference_backend/internal/logger"
	"conference_backend/pkg/apperrors"
	"conference_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// SessionGuard - проверка токена сессии.
// Токен передается как есть в заголовке Authorization, без "Bearer ".
func SessionGuard(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			apperrors.HandleError(c, apperrors.ErrSessionTokenRequired)
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			logger.CtxWarn(c.Request.Context(), "session token rejected", "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ErrInvalidSessionToken)
			return
		}

		setSession(c, claims)
		c.Next()
	}
}

// OptionalSession кладет claims в контекст, если токен валиден, и никогда не отказывает
func OptionalSession(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader("Authorization"); raw != "" {
			if claims, err := tokens.Parse(raw); err == nil {
				setSession(c, claims)
			}
		}
		c.Next()
	}
}

func setSession(c *gin.Context, claims *auth.SessionClaims) {
	c.Set(string(contextkeys.ClaimsContextKey), claims)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
}

// SessionFromContext извлекает claims, положенные SessionGuard/OptionalSession
func SessionFromContext(c *gin.Context) (*auth.SessionClaims, bool) {
	val, exists := c.Get(string(contextkeys.ClaimsContextKey))
	if !exists {
		return nil, false
	}
	claims, ok := val.(*auth.SessionClaims)
	return claims, ok && claims != nil
}

// GetUserID извлекает ID аккаунта из контекста
func GetUserID(c *gin.Context) string {
	claims, ok := SessionFromContext(c)
	if !ok {
		return ""
	}
	return claims.UserID
}
