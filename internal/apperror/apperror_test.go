package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSample = Conflict("EMAIL_TAKEN", "email already registered")

func TestAppError_IsSurvivesCopies(t *testing.T) {
	withDetail := errSample.WithDetail("email", "a@b.c")
	wrapped := fmt.Errorf("signup: %w", withDetail)

	assert.True(t, errors.Is(wrapped, errSample))
	assert.False(t, errors.Is(wrapped, NotFound("EMAIL_TAKEN", "x")))
	assert.Nil(t, errSample.Detail, "WithDetail must not mutate the sentinel")
}

func TestAppError_As(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := fmt.Errorf("load user: %w", Internal(cause))

	ae, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, ae.Status)
	assert.Equal(t, "internal server error", ae.Message)
	assert.ErrorIs(t, err, cause)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: user not found", NotFound("NOT_FOUND", "user not found").Error())
	assert.Equal(t, "INTERNAL_ERROR: internal server error: boom", Internal(errors.New("boom")).Error())
}

func TestValidation(t *testing.T) {
	err := Validation(map[string]string{"email": "must be a valid email"})
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "VALIDATION_ERROR", err.Code)
	assert.Equal(t, map[string]string{"email": "must be a valid email"}, err.Detail["fields"])
}
