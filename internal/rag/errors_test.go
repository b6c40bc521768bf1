package rag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := NewError(KindGeneration, "language model call failed", errUpstream)

	assert.ErrorIs(t, err, ErrGeneration)
	assert.NotErrorIs(t, err, ErrEmbedding)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, "language model call failed: upstream unavailable", err.Error())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("ask: %w", NewError(KindSessionNotFound, "gone", nil))

	assert.Equal(t, KindSessionNotFound, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, ErrSessionNotFound)
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
