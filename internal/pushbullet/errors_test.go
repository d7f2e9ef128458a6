package pushbullet_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushbulletnet/pushbullet/internal/pushbullet"
)

func TestErrorFromStatus(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusUnauthorized, pushbullet.ErrAuth},
		{http.StatusForbidden, pushbullet.ErrAuth},
		{http.StatusBadRequest, pushbullet.ErrValidation},
		{http.StatusNotFound, pushbullet.ErrValidation},
		{http.StatusUnprocessableEntity, pushbullet.ErrValidation},
		{http.StatusTooManyRequests, pushbullet.ErrService},
		{http.StatusInternalServerError, pushbullet.ErrService},
		{http.StatusServiceUnavailable, pushbullet.ErrService},
		{http.StatusFound, pushbullet.ErrService},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := pushbullet.ErrorFromStatus("get_user", tt.status, "invalid_request", "nope")
			assert.ErrorIs(t, err, tt.sentinel)

			for _, other := range []error{pushbullet.ErrAuth, pushbullet.ErrValidation, pushbullet.ErrService} {
				if other != tt.sentinel {
					assert.NotErrorIs(t, err, other)
				}
			}
		})
	}
}

func TestErrorFromStatus_Fields(t *testing.T) {
	err := pushbullet.ErrorFromStatus("create_chat", http.StatusBadRequest, "invalid_param", "No user")

	var vErr *pushbullet.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "create_chat", vErr.Op)
	assert.Equal(t, http.StatusBadRequest, vErr.StatusCode)
	assert.Equal(t, "invalid_param", vErr.Type)
	assert.Equal(t, "No user", vErr.Message)
	assert.Equal(t, "pushbullet create_chat: request rejected (status 400): No user", err.Error())
}

func TestServiceError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("calling api: %w", &pushbullet.ServiceError{Op: "get_devices", Err: cause})

	assert.ErrorIs(t, err, pushbullet.ErrService)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAuthError_Message(t *testing.T) {
	err := &pushbullet.AuthError{Op: "get_user", StatusCode: http.StatusUnauthorized}
	assert.Equal(t, "pushbullet get_user: authentication failed (status 401)", err.Error())
}
