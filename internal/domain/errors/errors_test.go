package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNoData(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"fetch error", NewFetchError("acled", "timeout"), true},
		{"empty data", NewEmptyDataError("acled", "Sudan"), true},
		{"wrapped fetch error", Wrap(NewFetchError("news", "missing API key"), "running Sudan"), true},
		{"summarization error", NewSummarizationError("model unavailable"), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNoData(tt.err))
		})
	}
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewNotFoundError("analysis run"))

	assert.True(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(err, ErrorTypeFetch))
	assert.False(t, IsType(errors.New("boom"), ErrorTypeNotFound))
}

func TestFromError(t *testing.T) {
	t.Run("structured error passes through", func(t *testing.T) {
		orig := NewValidationError("INVALID_COUNTRY", "unknown country")
		got := FromError(Wrap(orig, "handling request"))
		assert.Same(t, orig, got)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		cause := errors.New("pool exhausted")
		got := FromError(cause)
		require.NotNil(t, got)
		assert.Equal(t, ErrorTypeInternal, got.Type)
		assert.Equal(t, 500, got.StatusCode)
		assert.ErrorIs(t, got, cause)
	})
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	inner := NewFetchError("news", "timeout")
	wrapped := Wrap(inner, "running Mali")
	assert.ErrorIs(t, wrapped, inner)
	assert.Contains(t, wrapped.Error(), "running Mali")
}
