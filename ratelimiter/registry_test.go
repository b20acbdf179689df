package ratelimiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("gemini")
	assert.Error(t, err, "expected error for unregistered provider")

	first := New(100, 10)
	registry.Set("gemini", first)

	got, err := registry.Get("gemini")
	require.NoError(t, err)
	assert.Same(t, first, got)

	second := New(200, 20)
	registry.Set("gemini", second)
	got, err = registry.Get("gemini")
	require.NoError(t, err)
	assert.Same(t, second, got, "Set should overwrite the previous limiter")

	registry.Set("gemini", nil)
	_, err = registry.Get("gemini")
	assert.Error(t, err, "setting nil should remove the limiter")
}
