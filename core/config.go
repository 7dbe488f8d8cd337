// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// FramebufferCount is the number of swapchain images and frame slots in flight.
const FramebufferCount = 3

// Environment keys read by LoadConfiguration
const (
	EnvWidth      = "TRIGON_WIDTH"
	EnvHeight     = "TRIGON_HEIGHT"
	EnvFullscreen = "TRIGON_FULLSCREEN"
	EnvTitle      = "TRIGON_TITLE"
	EnvFps        = "TRIGON_FPS"
	EnvDebug      = "TRIGON_DEBUG"
	EnvLogLevel   = "TRIGON_LOG_LEVEL"
)

// Configuration defines a global configuration setting
type Configuration struct {
	Window   WindowConfiguration
	Time     TimeConfiguration
	Renderer RendererConfiguration

	LogLevel log.Level
}

// WindowConfiguration is used to configure the native window
type WindowConfiguration struct {
	Title      string
	Width      uint32
	Height     uint32
	Fullscreen bool

	// Hidden windows are only created for their surface
	Hidden bool
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize    uint32
	DeviceExtensions []string

	ScreenWidth  uint32
	ScreenHeight uint32

	// DebugMode loads validation layers and the debug report callback
	DebugMode bool
}

// DefaultConfiguration is used for anything not found in the environment
var DefaultConfiguration = Configuration{
	Window: WindowConfiguration{
		Title:  "Trigon Demo Window",
		Width:  800,
		Height: 600,
	},
	Time: TimeConfiguration{
		FramesPerSecond: 60,
	},
	Renderer: RendererConfiguration{
		SwapchainSize: FramebufferCount,
		DeviceExtensions: []string{
			"VK_KHR_swapchain",
		},
		ScreenWidth:  800,
		ScreenHeight: 600,
	},
	LogLevel: log.InfoLevel,
}

// LoadConfiguration reads the configuration from the environment.
// When envFile is given it is loaded first and must exist, otherwise
// a .env in the working directory is loaded if present.
// Values from dotenv files override the process environment, the same
// way envy already applies ./.env when the program starts.
func LoadConfiguration(envFile string) (Configuration, error) {
	if envFile != "" {
		if err := godotenv.Overload(envFile); err != nil {
			return Configuration{}, fmt.Errorf("godotenv.Overload(%s): %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Overload(); err != nil {
			return Configuration{}, fmt.Errorf("godotenv.Overload(.env): %w", err)
		}
	}
	envy.Reload()

	cfg := DefaultConfiguration
	cfg.Renderer.DeviceExtensions = append([]string(nil), DefaultConfiguration.Renderer.DeviceExtensions...)

	var err error
	if cfg.Window.Width, err = envUint32(EnvWidth, cfg.Window.Width); err != nil {
		return Configuration{}, err
	}
	if cfg.Window.Height, err = envUint32(EnvHeight, cfg.Window.Height); err != nil {
		return Configuration{}, err
	}
	if cfg.Window.Fullscreen, err = envBool(EnvFullscreen, cfg.Window.Fullscreen); err != nil {
		return Configuration{}, err
	}
	if cfg.Renderer.DebugMode, err = envBool(EnvDebug, cfg.Renderer.DebugMode); err != nil {
		return Configuration{}, err
	}
	cfg.Window.Title = envy.Get(EnvTitle, cfg.Window.Title)

	fps, err := strconv.Atoi(envy.Get(EnvFps, strconv.Itoa(cfg.Time.FramesPerSecond)))
	if err != nil || fps < 0 {
		return Configuration{}, fmt.Errorf("%s: invalid frame rate %q", EnvFps, envy.Get(EnvFps, ""))
	}
	cfg.Time.FramesPerSecond = fps

	level, err := log.ParseLevel(envy.Get(EnvLogLevel, cfg.LogLevel.String()))
	if err != nil {
		return Configuration{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	cfg.LogLevel = level

	if cfg.Window.Width == 0 || cfg.Window.Height == 0 {
		return Configuration{}, fmt.Errorf("window size %dx%d is empty", cfg.Window.Width, cfg.Window.Height)
	}
	cfg.Renderer.ScreenWidth = cfg.Window.Width
	cfg.Renderer.ScreenHeight = cfg.Window.Height
	return cfg, nil
}

func envUint32(key string, def uint32) (uint32, error) {
	raw := envy.Get(key, strconv.FormatUint(uint64(def), 10))
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, raw)
	}
	return uint32(v), nil
}

func envBool(key string, def bool) (bool, error) {
	raw := envy.Get(key, strconv.FormatBool(def))
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return v, nil
}
