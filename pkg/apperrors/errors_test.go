package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodesCarryHTTPStatus(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NewNotFound("content item", 5), CodeNotFound, http.StatusNotFound},
		{NewInvalidState("bad state"), CodeInvalidState, http.StatusConflict},
		{NewInvalidTransition("draft", "published"), CodeInvalidTransition, http.StatusConflict},
		{NewAlreadyProcessed("done"), CodeAlreadyProcessed, http.StatusConflict},
		{NewInvalidTime("past"), CodeInvalidTime, http.StatusBadRequest},
		{NewGateBlocked("crisis", true), CodeGateBlocked, http.StatusLocked},
		{NewExternalAction("publish failed", errors.New("boom")), CodeExternalAction, http.StatusBadGateway},
		{NewPersistenceDegraded("write lost", errors.New("db down")), CodePersistenceDegraded, http.StatusInternalServerError},
		{NewInternal("oops", errors.New("cause")), CodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.status, tc.err.HTTPStatus)
		assert.NotEmpty(t, tc.err.Error())
	}
}

func TestAsAppErrorUnwrapsChains(t *testing.T) {
	base := NewInvalidTime("too early")
	wrapped := fmt.Errorf("scheduling: %w", base)

	got, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidTime, got.Code)

	assert.True(t, HasCode(wrapped, CodeInvalidTime))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInvalidTime))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInternal("db write failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
