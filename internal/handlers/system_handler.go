package handlers

import (
	"net/http"

	"conference_backend/internal/logger"
	"conference_backend/internal/services"
	"conference_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type SystemHandler struct {
	*BaseHandler
	authService       services.AuthService
	submissionService services.SubmissionService
}

func NewSystemHandler(base *BaseHandler, authService services.AuthService, submissionService services.SubmissionService) *SystemHandler {
	return &SystemHandler{
		BaseHandler:       base,
		authService:       authService,
		submissionService: submissionService,
	}
}

// Health godoc
// @Summary Проверка живости
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	sqlDB, err := h.GetDB(c).DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		logger.CtxWithError(ctx, "health check failed", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Collections godoc
// @Summary Список таблиц базы
// @Tags system
// @Produce json
// @Success 200 {array} string
// @Failure 500 {object} apperrors.ErrorResponse
// @Router /collections [get]
func (h *SystemHandler) Collections(c *gin.Context) {
	tables, err := h.submissionService.ListCollections(c.Request.Context(), h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, apperrors.DatabaseError(err).WithMessage("Error fetching collections"))
		return
	}
	if tables == nil {
		tables = []string{}
	}
	c.JSON(http.StatusOK, tables)
}

// DebugTokens godoc
// @Summary Ожидающие токены подтверждения
// @Description Доступно только вне production
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /debug/tokens [get]
func (h *SystemHandler) DebugTokens(c *gin.Context) {
	pending, err := h.authService.DebugTokens(c.Request.Context(), h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	users := make([]gin.H, 0, len(pending))
	for _, p := range pending {
		users = append(users, gin.H{
			"email":       p.Email,
			"tokenExists": p.TokenLength > 0,
			"tokenLength": p.TokenLength,
			"expires":     p.Expires,
			"isExpired":   p.IsExpired,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(users),
		"users":   users,
	})
}
