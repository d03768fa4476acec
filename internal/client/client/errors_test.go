package client

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRejectedError(t *testing.T) {
	err := fmt.Errorf("create package: %w", &RejectedError{Status: 422, Message: "name is required"})

	assert.ErrorIs(t, err, ErrRejected)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "name is required")

	var rej *RejectedError
	assert.True(t, errors.As(err, &rej))
	assert.Equal(t, 422, rej.Status)

	assert.Equal(t, "request rejected (404)", (&RejectedError{Status: 404}).Error())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("GET /counties: %w", ErrUnavailable)))
	assert.False(t, IsTransient(ErrUnauthorized))
	assert.False(t, IsTransient(&RejectedError{Status: 400}))
	assert.False(t, IsTransient(nil))
}
