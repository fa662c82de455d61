package engine

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Ensure NewConfig properly parses config files.
func TestNewConfigFromFile(t *testing.T) {
	config, err := NewConfig("configs/full.yaml")
	require.NoError(t, err)

	require.Equal(t, uint32(log.DebugLevel), config.LogLevel)
	require.Equal(t, 0.05, config.Document.Opacity)
	require.Equal(t, 20.0, config.Document.OffsetX)
	require.Equal(t, 30.0, config.Document.OffsetY)
	require.Equal(t, 4.0, config.Document.ScaleX)
	require.Equal(t, 8.0, config.Document.ScaleY)
	require.Equal(t, 512, config.Document.MaxOverlaySide)
	require.Equal(t, 1048576, config.Raster.MaxPixels)
}

// Ensure that default config is loaded.
func TestNewConfigDefault(t *testing.T) {
	config, err := NewConfig("")
	require.NoError(t, err)
	require.Equal(t, uint32(log.InfoLevel), config.LogLevel)
	require.Equal(t, 0.01, config.Document.Opacity)
	require.Equal(t, 50.0, config.Document.OffsetX)
	require.Equal(t, 10.0, config.Document.ScaleY)
	require.Equal(t, 2048, config.Document.MaxOverlaySide)
	require.Equal(t, DefaultMaxPixels, config.Raster.MaxPixels)
	require.NoError(t, config.Validate())
}

// Ensure an unknown log level is rejected.
func TestNewConfigInvalidLevel(t *testing.T) {
	_, err := NewConfig("configs/invalid-level.yaml")
	require.Error(t, err)
}

// Ensure out-of-range overlay settings are rejected.
func TestNewConfigInvalidOpacity(t *testing.T) {
	_, err := NewConfig("configs/invalid-opacity.yaml")
	require.Error(t, err)
}

// Ensure a missing file is reported rather than silently ignored.
func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig("configs/does-not-exist.yaml")
	require.Error(t, err)
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"Warn", log.WarnLevel},
		{"error", log.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := GetLogLevel(tt.in)
		require.NoError(t, err)
		require.Equal(t, uint32(tt.want), got)
	}
	_, err := GetLogLevel("trace")
	require.Error(t, err)
}

func TestConfigString(t *testing.T) {
	config := NewDefaultConfig()
	require.Equal(t, "[Opacity: 0.01, Offset: (50, 50), Scale: 10x10, Max side: 2,048 px]",
		config.Document.String())
	require.Equal(t, "[Max pixels: 268,435,456]", config.Raster.String())
}
