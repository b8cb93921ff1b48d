package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	withCause := Validation("create job", errors.New("name is required"))
	assert.Equal(t, "create job: name is required", withCause.Error())

	withoutCause := NotFound("job not found")
	assert.Equal(t, "job not found", withoutCause.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := StoreUnavailable("query jobs", cause)

	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	assert.ErrorAs(t, fmt.Errorf("outer: %w", err), &appErr)
	assert.Equal(t, ErrCodeStoreUnavailable, appErr.Code)
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{name: "validation", err: Validation("x", nil), expected: ErrCodeValidation},
		{name: "conflict", err: Conflict("x", nil), expected: ErrCodeConflict},
		{name: "invalid state", err: InvalidState("x", nil), expected: ErrCodeInvalidState},
		{name: "not found", err: NotFound("x"), expected: ErrCodeNotFound},
		{name: "wrapped twice", err: fmt.Errorf("w: %w", InvalidState("x", nil)), expected: ErrCodeInvalidState},
		{name: "plain error", err: errors.New("plain"), expected: ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CodeOf(tt.err))
			assert.True(t, IsCode(tt.err, tt.expected))
		})
	}
}
