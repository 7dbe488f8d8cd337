// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package window owns the native window and its event loop.
package window

import (
	"fmt"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/trigon/core"
)

// Texts of the exit confirmation
const (
	ConfirmTitle   = "Really?"
	ConfirmMessage = "Are you sure you want to exit?"
)

// Confirmer asks the user a yes or no question
type Confirmer interface {
	Confirm(title, message string) bool
}

// MessageBoxConfirmer asks with a native message box
type MessageBoxConfirmer struct {
	Parent *sdl.Window
}

// Confirm implements interface
func (m MessageBoxConfirmer) Confirm(title, message string) bool {
	buttonID, err := sdl.ShowMessageBox(&sdl.MessageBoxData{
		Flags:   sdl.MESSAGEBOX_INFORMATION,
		Window:  m.Parent,
		Title:   title,
		Message: message,
		Buttons: []sdl.MessageBoxButtonData{
			{Flags: sdl.MESSAGEBOX_BUTTON_ESCAPEKEY_DEFAULT, ButtonID: 0, Text: "No"},
			{Flags: sdl.MESSAGEBOX_BUTTON_RETURNKEY_DEFAULT, ButtonID: 1, Text: "Yes"},
		},
	})
	if err != nil {
		log.WithError(err).Warn("confirmation dialog failed")
		return false
	}
	return buttonID == 1
}

// ShowError shows a blocking error message box, parent may be nil
func ShowError(title, message string, parent *Window) {
	var w *sdl.Window
	if parent != nil {
		w = parent.window
	}
	if err := sdl.ShowSimpleMessageBox(sdl.MESSAGEBOX_ERROR, title, message, w); err != nil {
		log.WithError(err).Error("error dialog failed")
	}
}

// New initialises video and creates a window ready for Vulkan.
// Fullscreen windows cover the primary display without decorations.
func New(cfg core.WindowConfiguration) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("sdl.Init(): %w", err)
	}

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("sdl.VulkanLoadLibrary(): %w", err)
	}

	width, height := int32(cfg.Width), int32(cfg.Height)
	var flags uint32 = sdl.WINDOW_VULKAN | sdl.WINDOW_SHOWN
	if cfg.Hidden {
		flags = sdl.WINDOW_VULKAN | sdl.WINDOW_HIDDEN
	}
	if cfg.Fullscreen {
		bounds, err := sdl.GetDisplayBounds(0)
		if err != nil {
			sdl.VulkanUnloadLibrary()
			sdl.Quit()
			return nil, fmt.Errorf("sdl.GetDisplayBounds(): %w", err)
		}
		width, height = bounds.W, bounds.H
		flags |= sdl.WINDOW_BORDERLESS
	} else {
		flags |= sdl.WINDOW_RESIZABLE
	}

	sdlWindow, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		width,
		height,
		flags)
	if err != nil {
		sdl.VulkanUnloadLibrary()
		sdl.Quit()
		return nil, fmt.Errorf("sdl.CreateWindow(): %w", err)
	}

	log.WithFields(log.Fields{
		"width":      width,
		"height":     height,
		"fullscreen": cfg.Fullscreen,
	}).Info("window created")

	w := newWindow(sdlWindow, MessageBoxConfirmer{Parent: sdlWindow})
	w.owned = true
	return w, nil
}

func newWindow(sdlWindow *sdl.Window, confirm Confirmer) *Window {
	return &Window{
		window:  sdlWindow,
		confirm: confirm,
		running: true,
	}
}

// Window is the native window and the global running flag
type Window struct {
	window  *sdl.Window
	confirm Confirmer
	owned   bool

	running bool
	resized bool
}

// SetConfirmer replaces the exit confirmation
func (w *Window) SetConfirmer(c Confirmer) {
	w.confirm = c
}

// Running reports whether the message loop should keep going
func (w *Window) Running() bool {
	return w.running
}

// Stop ends the message loop on its next iteration
func (w *Window) Stop() {
	w.running = false
}

// Resized reports and clears a pending size change
func (w *Window) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

// Pump handles every pending event and tells if the loop should continue
func (w *Window) Pump() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.Handle(event)
	}
	return w.running
}

// Handle reacts to a single event
func (w *Window) Handle(event sdl.Event) {
	switch et := event.(type) {
	case *sdl.KeyboardEvent:
		if et.Type != sdl.KEYDOWN || et.Repeat != 0 || et.Keysym.Sym != sdl.K_ESCAPE {
			return
		}
		if w.confirm.Confirm(ConfirmTitle, ConfirmMessage) {
			log.Info("exit confirmed")
			w.Stop()
		}
	case *sdl.WindowEvent:
		if et.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			w.resized = true
		}
	case *sdl.QuitEvent:
		w.Stop()
	}
}

// VulkanInstanceExtensions returns the extensions the surface needs
func (w *Window) VulkanInstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// VulkanProcAddr returns vkGetInstanceProcAddr of the loaded library
func (w *Window) VulkanProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// CreateSurface creates a presentation surface for instance
func (w *Window) CreateSurface(instance interface{}) (unsafe.Pointer, error) {
	surface, err := w.window.VulkanCreateSurface(instance)
	if err != nil {
		return nil, fmt.Errorf("sdl.VulkanCreateSurface(): %w", err)
	}
	return surface, nil
}

// DrawableSize is the size of the area rendered into
func (w *Window) DrawableSize() (uint32, uint32) {
	width, height := w.window.VulkanGetDrawableSize()
	return uint32(width), uint32(height)
}

// Destroy destroys the window and shuts video down
func (w *Window) Destroy() {
	if !w.owned {
		return
	}
	if err := w.window.Destroy(); err != nil {
		log.WithError(err).Warn("window destroy failed")
	}
	sdl.VulkanUnloadLibrary()
	sdl.Quit()
	w.owned = false
}
