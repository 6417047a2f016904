package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewYXCErrorMappingIsDeterministic(t *testing.T) {
	cases := map[int]Kind{
		1:   KindInitializing,
		3:   KindInvalidRequest,
		6:   KindTimeout,
		99:  KindWrongUsername,
		109: KindAccessDenied,
	}
	for code, want := range cases {
		got := NewYXCError(code)
		require.Equal(t, want, got.Kind)
		require.Equal(t, code, got.ResponseCode)
	}
}

func TestNewYXCErrorUnknownCodeIsStable(t *testing.T) {
	first := NewYXCError(9999)
	second := NewYXCError(9999)
	require.Equal(t, KindUnknownError, first.Kind)
	require.Equal(t, first.Kind, second.Kind)
}

func TestKindOf(t *testing.T) {
	err := NewArgumentError("bad input")
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindArgumentError, kind)

	_, ok = KindOf(errors.New("plain error"))
	require.False(t, ok)
}

func TestKindOfWrapped(t *testing.T) {
	err := NewNotFound("thing")
	wrapped := fmt.Errorf("context: %w", err)
	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	require.Equal(t, KindNotFound, kind)
}
