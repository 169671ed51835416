package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorChaining(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewRefreshFailedError("google", cause)

	assert.Equal(t, ErrorTypeRefreshFailed, err.Type)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
	assert.ErrorIs(t, err, cause)
}

func TestGetAppErrorThroughWrapping(t *testing.T) {
	inner := NewNotConnectedError("slack")
	wrapped := fmt.Errorf("dispatch failed: %w", inner)

	got := GetAppError(wrapped)
	assert.NotNil(t, got)
	assert.Equal(t, ErrorTypeNotConnected, got.Type)
	assert.True(t, IsNotConnected(wrapped))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not connected", NewNotConnectedError("google"), http.StatusNotFound},
		{"reauth required", NewReauthRequiredError("microsoft"), http.StatusUnauthorized},
		{"refresh failed", NewRefreshFailedError("google", errors.New("timeout")), http.StatusBadGateway},
		{"clarification", NewClarificationNeededError("ambiguous time"), http.StatusBadRequest},
		{"unsupported", NewUnsupportedError("note is not executable"), http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestWrapPreservesType(t *testing.T) {
	err := Wrap(NewReauthRequiredError("google"), "execute calendar")
	assert.True(t, IsReauthRequired(err))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "anything"))
}

func TestWithDetail(t *testing.T) {
	err := NewMissingFieldError("no recipient").WithDetail("field", "to")
	assert.Equal(t, "to", err.Details["field"])
}
