package logging

import (
	"context"
	"testing"

	"air5star/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_InvalidLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Name = "air5star-api"
	cfg.App.LogLevel = "loud"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_Level(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Name = "air5star-api"
	cfg.App.Env = "test"
	cfg.App.LogLevel = "warn"

	logger, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestFromContext(t *testing.T) {
	l := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))

	assert.NotNil(t, FromContext(context.Background()))
	assert.Equal(t, context.Background(), ContextWithLogger(context.Background(), nil))
}
