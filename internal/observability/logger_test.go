package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/prefeitura-digital/prompt-router/config"
)

func TestNewLoggerJSON(t *testing.T) {
	logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLoggerText(t *testing.T) {
	logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "debug", LogFormat: "text"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, err := NewLogger(config.ObservabilityConfig{LogLevel: "shout", LogFormat: "json"})
	assert.ErrorContains(t, err, "parse log level")
}
