package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAppErrorError tests message formatting with and without a cause
func TestAppErrorError(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		cause := stderrors.New("disk full")
		err := NewStorageError("write realization file", cause)
		assert.Equal(t, "[STORAGE] write realization file: disk full", err.Error())
	})

	t.Run("without cause", func(t *testing.T) {
		err := NewValidationError("vector name is empty")
		assert.Equal(t, "[VALIDATION] vector name is empty", err.Error())
	})
}

// TestAppErrorUnwrap tests errors.Is and errors.As through the chain
func TestAppErrorUnwrap(t *testing.T) {
	sentinel := stderrors.New("no such file")
	err := NewStorageError("open ensemble store", sentinel)

	assert.ErrorIs(t, err, sentinel)

	wrapped := fmt.Errorf("load ensemble: %w", err)
	var appErr *AppError
	require.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

// TestAppErrorWithContext tests context accumulation
func TestAppErrorWithContext(t *testing.T) {
	err := NewQueryError("fetch vectors", nil).
		WithContext("ensemble", "iter-0").
		WithContext("vectors", 3)

	assert.Equal(t, "iter-0", err.Context["ensemble"])
	assert.Equal(t, 3, err.Context["vectors"])
}

// TestErrorTypeConstructors tests the per-type helpers
func TestErrorTypeConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want ErrorType
	}{
		{name: "storage", err: NewStorageError("m", nil), want: ErrTypeStorage},
		{name: "parsing", err: NewParsingError("m", nil), want: ErrTypeParsing},
		{name: "validation", err: NewValidationError("m"), want: ErrTypeValidation},
		{name: "not found", err: NewNotFoundError("ensemble"), want: ErrTypeNotFound},
		{name: "config", err: NewConfigError("m", nil), want: ErrTypeConfig},
		{name: "export", err: NewExportError("m", nil), want: ErrTypeExport},
		{name: "query", err: NewQueryError("m", nil), want: ErrTypeQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Type)
		})
	}
}
