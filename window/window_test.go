// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
)

type answer struct {
	yes   bool
	asked []string
}

func (a *answer) Confirm(title, message string) bool {
	a.asked = append(a.asked, title+"|"+message)
	return a.yes
}

func escape(eventType uint32, repeat uint8) *sdl.KeyboardEvent {
	return &sdl.KeyboardEvent{
		Type:   eventType,
		Repeat: repeat,
		Keysym: sdl.Keysym{Sym: sdl.K_ESCAPE},
	}
}

func TestEscapeConfirmed(t *testing.T) {
	a := &answer{yes: true}
	w := newWindow(nil, a)

	w.Handle(escape(sdl.KEYDOWN, 0))
	assert.False(t, w.Running())
	assert.Equal(t, []string{ConfirmTitle + "|" + ConfirmMessage}, a.asked)
}

func TestEscapeDeclined(t *testing.T) {
	a := &answer{yes: false}
	w := newWindow(nil, a)

	w.Handle(escape(sdl.KEYDOWN, 0))
	assert.True(t, w.Running())
	assert.Len(t, a.asked, 1)
}

func TestEscapeReleaseAndRepeatIgnored(t *testing.T) {
	a := &answer{yes: true}
	w := newWindow(nil, a)

	w.Handle(escape(sdl.KEYUP, 0))
	w.Handle(escape(sdl.KEYDOWN, 1))
	assert.True(t, w.Running())
	assert.Empty(t, a.asked)
}

func TestOtherKeysIgnored(t *testing.T) {
	a := &answer{yes: true}
	w := newWindow(nil, a)

	w.Handle(&sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Sym: sdl.K_q}})
	assert.True(t, w.Running())
	assert.Empty(t, a.asked)
}

func TestQuitStops(t *testing.T) {
	w := newWindow(nil, &answer{})
	w.Handle(&sdl.QuitEvent{Type: sdl.QUIT})
	assert.False(t, w.Running())
}

func TestResizeFlagClears(t *testing.T) {
	w := newWindow(nil, &answer{})
	assert.False(t, w.Resized())

	w.Handle(&sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_SIZE_CHANGED})
	assert.True(t, w.Resized())
	assert.False(t, w.Resized())
}

func TestStop(t *testing.T) {
	w := newWindow(nil, &answer{})
	assert.True(t, w.Running())
	w.Stop()
	assert.False(t, w.Running())
}
