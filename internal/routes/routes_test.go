package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"conference_backend/internal/auth"
	"conference_backend/internal/handlers"
	"conference_backend/internal/logger"
	"conference_backend/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Discard()
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }
func (denyAll) Close() error                                { return nil }

func newAppHandlers() *handlers.AppHandlers {
	base := handlers.NewBaseHandler(validator.New())
	return &handlers.AppHandlers{
		AuthHandler:       handlers.NewAuthHandler(base, nil),
		SubmissionHandler: handlers.NewSubmissionHandler(base, nil),
		SystemHandler:     handlers.NewSystemHandler(base, nil, nil),
	}
}

func registered(r *gin.Engine) map[string]bool {
	out := map[string]bool{}
	for _, route := range r.Routes() {
		out[route.Method+" "+route.Path] = true
	}
	return out
}

func TestRegisterRoutes_Production(t *testing.T) {
	r := gin.New()
	RegisterRoutes(r, newAppHandlers(), Options{Tokens: auth.NewTokenManager("s", time.Hour)})
	routes := registered(r)

	for _, want := range []string{
		"POST /signin", "GET /verify-email", "POST /verify-email-token", "GET /verify",
		"POST /login", "POST /forgot-password", "POST /reset-password",
		"POST /resend-verification", "GET /protected", "POST /submit-paper",
		"GET /user-submission", "GET /user-submissions", "GET /collections", "GET /healthz",
	} {
		assert.True(t, routes[want], want)
	}
	assert.False(t, routes["GET /debug/tokens"])
	assert.False(t, routes["GET /swagger/*any"])
	assert.False(t, routes["GET /metrics"])
}

func TestRegisterRoutes_DebugAndRateLimit(t *testing.T) {
	r := gin.New()
	RegisterRoutes(r, newAppHandlers(), Options{
		Tokens:  auth.NewTokenManager("s", time.Hour),
		Limiter: denyAll{},
		Debug:   true,
	})
	routes := registered(r)
	assert.True(t, routes["GET /debug/tokens"])
	assert.True(t, routes["GET /swagger/*any"])

	// лимитер срабатывает раньше хэндлера
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// guard срабатывает раньше хэндлера
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
