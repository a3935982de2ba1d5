package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Level(t *testing.T) {
	l, err := New("warn")
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("ruidoso")
	assert.Error(t, err)
}

func TestInit_FallsBackToInfo(t *testing.T) {
	Init("ruidoso")

	assert.True(t, Logger().Core().Enabled(zap.InfoLevel))
	assert.False(t, Logger().Core().Enabled(zap.DebugLevel))
	assert.NotNil(t, Sugar())
}
