package logging_test

import (
	"errors"
	"testing"

	"github.com/fivetwenty-io/pokeapi/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.New(zap.New(core))

	logger.Debug("HTTP Request", map[string]interface{}{"url": "https://pokeapi.co/api/v2/berry/cheri"})
	logger.Info("catalog loaded", nil)
	logger.Warn("cache write failed", map[string]interface{}{"error": errors.New("disk full"), "endpoint": "berry"})
	logger.Error("fetch failed", map[string]interface{}{"status": 500})

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "https://pokeapi.co/api/v2/berry/cheri", entries[0].ContextMap()["url"])

	assert.Empty(t, entries[1].Context)

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	require.Len(t, entries[2].Context, 2)
	assert.Equal(t, "endpoint", entries[2].Context[0].Key)
	assert.Equal(t, "disk full", entries[2].ContextMap()["error"])

	assert.Equal(t, int64(500), entries[3].ContextMap()["status"])
}

func TestNew_NilDiscards(t *testing.T) {
	t.Parallel()

	logger := logging.New(nil)
	assert.NotPanics(t, func() {
		logger.Warn("ignored", map[string]interface{}{"k": "v"})
	})
	assert.NotNil(t, logger.Zap())
}

func TestNewDevelopment(t *testing.T) {
	t.Parallel()

	quiet, err := logging.NewDevelopment(false)
	require.NoError(t, err)
	assert.False(t, quiet.Zap().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, quiet.Zap().Core().Enabled(zapcore.WarnLevel))

	verbose, err := logging.NewDevelopment(true)
	require.NoError(t, err)
	assert.True(t, verbose.Zap().Core().Enabled(zapcore.DebugLevel))
}
