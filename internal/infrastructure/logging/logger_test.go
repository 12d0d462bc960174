package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewBuildsLogger(t *testing.T) {
	logger, err := New(Config{Level: "warn", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.NotNil(t, logger.Logger)
	assert.False(t, logger.Core().Enabled(-1)) // debug disabled at warn
}

func TestComponentNamesLogger(t *testing.T) {
	logger := NewNop()
	child := logger.Component("kernel")
	assert.NotNil(t, child)
}

func TestIsProduction(t *testing.T) {
	t.Setenv("WEBDESK_ENV", "production")
	assert.True(t, IsProduction())
	t.Setenv("WEBDESK_ENV", "dev")
	assert.False(t, IsProduction())
}
