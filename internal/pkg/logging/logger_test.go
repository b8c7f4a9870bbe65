package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewConfig(t *testing.T) {
	t.Run("applies level and initial fields", func(t *testing.T) {
		cfg, err := NewConfig("honeyshop", "test", "debug")
		require.NoError(t, err)

		assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())
		assert.Equal(t, "honeyshop", cfg.InitialFields["service"])
		assert.Equal(t, "test", cfg.InitialFields["env"])
		assert.Equal(t, "ts", cfg.EncoderConfig.TimeKey)
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := NewConfig("honeyshop", "test", "loud")
		assert.Error(t, err)
	})
}

func TestWithTrace(t *testing.T) {
	logger := WithTrace(nil, "", "")
	assert.NotNil(t, logger)
}
