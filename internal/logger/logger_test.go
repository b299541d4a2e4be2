package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("nonsense"))
}

func TestInitializeWritesToFile(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	file := filepath.Join(t.TempDir(), "quill.log")
	require.NoError(t, Initialize("debug", file))
	assert.True(t, Log.Core().Enabled(zapcore.DebugLevel))

	Log.Info("hello")
	_ = Log.Sync()

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
