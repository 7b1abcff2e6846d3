package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrUnauthorized, "unauthorized"},
		{ErrForbidden, "forbidden"},
		{ErrNotFound, "not_found"},
		{ErrValidation, "validation"},
		{ErrExpired, "expired"},
		{ErrUnavailable, "unavailable"},
		{errors.New("something internal"), "unavailable"},
		{fmt.Errorf("update m1: %w", ErrForbidden), "forbidden"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ErrorCode(tc.err), tc.err.Error())
	}
}

func TestValidate(t *testing.T) {
	type frame struct {
		Type string `validate:"required,oneof=send edit delete"`
	}

	assert.NoError(t, Validate(&frame{Type: "send"}))

	err := Validate(&frame{Type: "shout"})
	assert.ErrorIs(t, err, ErrValidation)
}
