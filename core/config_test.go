// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/trigon/core"
)

// clearEnv makes sure values from the developer's shell don't leak in
func clearEnv(t *testing.T) {
	for _, key := range []string{
		core.EnvWidth, core.EnvHeight, core.EnvFullscreen, core.EnvTitle,
		core.EnvFps, core.EnvDebug, core.EnvLogLevel,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())
}

func TestLoadConfigurationDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := core.LoadConfiguration("")
	require.NoError(t, err)
	assert.Equal(t, "Trigon Demo Window", cfg.Window.Title)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, uint32(600), cfg.Window.Height)
	assert.False(t, cfg.Window.Fullscreen)
	assert.Equal(t, 60, cfg.Time.FramesPerSecond)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel)
	assert.Equal(t, uint32(core.FramebufferCount), cfg.Renderer.SwapchainSize)
	assert.Equal(t, []string{"VK_KHR_swapchain"}, cfg.Renderer.DeviceExtensions)
	assert.Equal(t, cfg.Window.Width, cfg.Renderer.ScreenWidth)
	assert.Equal(t, cfg.Window.Height, cfg.Renderer.ScreenHeight)
}

func TestLoadConfigurationFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(core.EnvWidth, "1280")
	t.Setenv(core.EnvHeight, "720")
	t.Setenv(core.EnvFullscreen, "true")
	t.Setenv(core.EnvTitle, "triangle")
	t.Setenv(core.EnvFps, "0")
	t.Setenv(core.EnvDebug, "1")
	t.Setenv(core.EnvLogLevel, "debug")

	cfg, err := core.LoadConfiguration("")
	require.NoError(t, err)
	assert.Equal(t, core.WindowConfiguration{
		Title:      "triangle",
		Width:      1280,
		Height:     720,
		Fullscreen: true,
	}, cfg.Window)
	assert.Equal(t, 0, cfg.Time.FramesPerSecond)
	assert.True(t, cfg.Renderer.DebugMode)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
	assert.Equal(t, uint32(1280), cfg.Renderer.ScreenWidth)
	assert.Equal(t, uint32(720), cfg.Renderer.ScreenHeight)
}

func TestLoadConfigurationEnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "trigon.env")
	require.NoError(t, os.WriteFile(envFile, []byte("TRIGON_WIDTH=1024\nTRIGON_TITLE=\"from file\"\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv(core.EnvWidth)
		os.Unsetenv(core.EnvTitle)
	})

	cfg, err := core.LoadConfiguration(envFile)
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), cfg.Window.Width)
	assert.Equal(t, "from file", cfg.Window.Title)
}

func TestLoadConfigurationDotEnvInWorkingDirectory(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("TRIGON_FPS=144\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(core.EnvFps) })

	cfg, err := core.LoadConfiguration("")
	require.NoError(t, err)
	assert.Equal(t, 144, cfg.Time.FramesPerSecond)
}

func TestLoadConfigurationEnvFileOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(core.EnvHeight, "900")
	envFile := filepath.Join(t.TempDir(), "trigon.env")
	require.NoError(t, os.WriteFile(envFile, []byte("TRIGON_HEIGHT=100\n"), 0o644))

	cfg, err := core.LoadConfiguration(envFile)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), cfg.Window.Height)
}

func TestLoadConfigurationDotEnvOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(core.EnvWidth, "640")
	require.NoError(t, os.WriteFile(".env", []byte("TRIGON_WIDTH=1024\n"), 0o644))

	cfg, err := core.LoadConfiguration("")
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), cfg.Window.Width)
	assert.Equal(t, "1024", os.Getenv(core.EnvWidth))
}

func TestLoadConfigurationErrors(t *testing.T) {
	testCases := []struct {
		key, value string
	}{
		{core.EnvWidth, "wide"},
		{core.EnvHeight, "-1"},
		{core.EnvWidth, "0"},
		{core.EnvFullscreen, "maybe"},
		{core.EnvFps, "-30"},
		{core.EnvFps, "fast"},
		{core.EnvLogLevel, "loud"},
	}
	for _, tc := range testCases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := core.LoadConfiguration("")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigurationMissingEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := core.LoadConfiguration(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
