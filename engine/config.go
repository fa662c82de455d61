package engine

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/mirseo/updrm/engine/carrier/document"
)

const (
	// DefaultMaxPixels bounds the dimensions of PNG hosts accepted for
	// decoding.
	DefaultMaxPixels = 1 << 28
)

// DocumentConfig contains settings for the PDF overlay.
type DocumentConfig struct {
	Opacity        float64
	OffsetX        float64
	OffsetY        float64
	ScaleX         float64
	ScaleY         float64
	MaxOverlaySide int
}

// options converts the config into carrier options.
func (d DocumentConfig) options() document.Options {
	return document.Options{
		Opacity:        d.Opacity,
		OffsetX:        d.OffsetX,
		OffsetY:        d.OffsetY,
		ScaleX:         d.ScaleX,
		ScaleY:         d.ScaleY,
		MaxOverlaySide: d.MaxOverlaySide,
	}
}

// String returns a human-readable summary of the overlay settings.
func (d DocumentConfig) String() string {
	return fmt.Sprintf("[Opacity: %g, Offset: (%g, %g), Scale: %gx%g, Max side: %s px]",
		d.Opacity, d.OffsetX, d.OffsetY, d.ScaleX, d.ScaleY, humanize.Comma(int64(d.MaxOverlaySide)))
}

// RasterConfig contains settings for PNG hosts.
type RasterConfig struct {
	MaxPixels int
}

// String returns a human-readable summary of the raster settings.
func (r RasterConfig) String() string {
	return fmt.Sprintf("[Max pixels: %s]", humanize.Comma(int64(r.MaxPixels)))
}

// Config contains all settings for an Engine.
type Config struct {
	LogLevel uint32
	Document DocumentConfig
	Raster   RasterConfig
}

// NewDefaultConfig creates a new Config with default settings.
func NewDefaultConfig() *Config {
	opts := document.DefaultOptions()
	config := &Config{}
	config.LogLevel = uint32(log.InfoLevel)
	config.Document = DocumentConfig{
		Opacity:        opts.Opacity,
		OffsetX:        opts.OffsetX,
		OffsetY:        opts.OffsetY,
		ScaleX:         opts.ScaleX,
		ScaleY:         opts.ScaleY,
		MaxOverlaySide: opts.MaxOverlaySide,
	}
	config.Raster.MaxPixels = DefaultMaxPixels
	return config
}

// GetLogLevel converts the level string to its corresponding int value. It
// returns an error if the level is invalid.
func GetLogLevel(level string) (uint32, error) {
	var l uint32
	switch strings.ToLower(level) {
	case "debug":
		l = uint32(log.DebugLevel)
	case "info":
		l = uint32(log.InfoLevel)
	case "warn":
		l = uint32(log.WarnLevel)
	case "error":
		l = uint32(log.ErrorLevel)
	default:
		return 0, fmt.Errorf("Invalid log.level setting %q", level)
	}
	return l, nil
}

// NewConfig creates a new Config with default settings and applies any
// settings from the given configuration file.
func NewConfig(configFile string) (*Config, error) {
	config := NewDefaultConfig()
	if configFile == "" {
		return config, nil
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return config, nil
		}
		return nil, errors.Wrap(err, "failed to read configuration file")
	}

	if v.IsSet("log.level") {
		level := v.GetString("log.level")
		levelInt, err := GetLogLevel(level)
		if err != nil {
			return nil, err
		}
		config.LogLevel = levelInt
	}

	if v.IsSet("document.opacity") {
		config.Document.Opacity = v.GetFloat64("document.opacity")
	}
	if v.IsSet("document.offset.x") {
		config.Document.OffsetX = v.GetFloat64("document.offset.x")
	}
	if v.IsSet("document.offset.y") {
		config.Document.OffsetY = v.GetFloat64("document.offset.y")
	}
	if v.IsSet("document.scale.x") {
		config.Document.ScaleX = v.GetFloat64("document.scale.x")
	}
	if v.IsSet("document.scale.y") {
		config.Document.ScaleY = v.GetFloat64("document.scale.y")
	}
	if v.IsSet("document.max.overlay.side") {
		config.Document.MaxOverlaySide = v.GetInt("document.max.overlay.side")
	}

	if v.IsSet("raster.max.pixels") {
		config.Raster.MaxPixels = v.GetInt("raster.max.pixels")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the settings describe a usable overlay and raster
// bound.
func (c *Config) Validate() error {
	if c.Document.Opacity <= 0 || c.Document.Opacity > 1 {
		return fmt.Errorf("document.opacity must be in (0, 1], got %g", c.Document.Opacity)
	}
	if c.Document.ScaleX <= 0 || c.Document.ScaleY <= 0 {
		return fmt.Errorf("document.scale must be positive, got %gx%g",
			c.Document.ScaleX, c.Document.ScaleY)
	}
	if c.Document.MaxOverlaySide <= 0 {
		return fmt.Errorf("document.max.overlay.side must be positive, got %d",
			c.Document.MaxOverlaySide)
	}
	if c.Raster.MaxPixels <= 0 {
		return fmt.Errorf("raster.max.pixels must be positive, got %d", c.Raster.MaxPixels)
	}
	return nil
}
