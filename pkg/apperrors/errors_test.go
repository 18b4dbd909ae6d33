package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_IsAndCopies(t *testing.T) {
	cause := errors.New("smtp: dial timeout")
	wrapped := fmt.Errorf("signup: %w", ErrEmailDeliveryFailed.WithError(cause))

	assert.ErrorIs(t, wrapped, ErrEmailDeliveryFailed)
	assert.ErrorIs(t, wrapped, cause)
	assert.NotErrorIs(t, wrapped, ErrAccountNotFound)

	// копии не трогают общую переменную
	custom := ErrAccountNotFound.WithMessage("nope").WithDetails("x")
	assert.Equal(t, "User not found", ErrAccountNotFound.Message)
	assert.Nil(t, ErrAccountNotFound.Details)
	assert.ErrorIs(t, custom, ErrAccountNotFound)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPCode)

	_, ok = AsAppError(cause)
	assert.False(t, ok)
}

func TestAppError_JSONHidesCause(t *testing.T) {
	err := DatabaseError(errors.New("pq: password authentication failed"))
	raw, jerr := json.Marshal(err)
	require.NoError(t, jerr)
	assert.NotContains(t, string(raw), "pq:")
	assert.Contains(t, string(raw), "DATABASE_ERROR")
	assert.Contains(t, err.Error(), "pq:")
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		err     error
		debug   bool
		status  int
		message string
		details bool
	}{
		{"domain error", ErrSessionTokenRequired, false, http.StatusForbidden, "A token is required for authentication", false},
		{"unauthorized", NewUnauthorizedError("no session"), false, http.StatusUnauthorized, "no session", false},
		{"forbidden", NewForbiddenError("denied"), false, http.StatusForbidden, "denied", false},
		{"plain error", errors.New("boom"), false, http.StatusInternalServerError, "Internal server error", false},
		{"plain error debug", errors.New("boom"), true, http.StatusInternalServerError, "Internal server error", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			SetDebug(tc.debug)
			defer SetDebug(false)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			HandleError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			assert.True(t, c.IsAborted())

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.message, body.Message)
			if tc.details {
				assert.Equal(t, "boom", body.Details)
			} else {
				assert.Nil(t, body.Details)
			}
		})
	}
}
