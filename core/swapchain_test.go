// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/trigon/shader"
)

func TestChooseSurfaceFormat(t *testing.T) {
	bgra := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorspaceSrgbNonlinear}
	rgba := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorspaceSrgbNonlinear}

	testCases := []struct {
		name    string
		formats []vk.SurfaceFormat
		want    vk.SurfaceFormat
	}{
		{"none reported", nil, bgra},
		{"undefined means any", []vk.SurfaceFormat{{Format: vk.FormatUndefined}}, bgra},
		{"preferred available", []vk.SurfaceFormat{rgba, bgra}, bgra},
		{"falls back to first", []vk.SurfaceFormat{rgba}, rgba},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, chooseSurfaceFormat(tc.formats))
		})
	}
}

func TestChooseExtent(t *testing.T) {
	min := vk.Extent2D{Width: 1, Height: 1}
	max := vk.Extent2D{Width: 1920, Height: 1080}

	current := vk.Extent2D{Width: 640, Height: 480}
	assert.Equal(t, current, chooseExtent(current, min, max, 800, 600), "surface size wins")

	undefined := vk.Extent2D{Width: undefinedExtent, Height: undefinedExtent}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseExtent(undefined, min, max, 800, 600))
	assert.Equal(t, vk.Extent2D{Width: 1920, Height: 1}, chooseExtent(undefined, min, max, 4000, 0))

	minimised := vk.Extent2D{}
	assert.Equal(t, minimised, chooseExtent(minimised, min, max, 800, 600))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(FramebufferCount), chooseImageCount(FramebufferCount, 2, 8))
	assert.Equal(t, uint32(4), chooseImageCount(FramebufferCount, 4, 8))
	assert.Equal(t, uint32(2), chooseImageCount(FramebufferCount, 1, 2))
	assert.Equal(t, uint32(FramebufferCount), chooseImageCount(FramebufferCount, 1, 0), "zero max is unbounded")
}

func TestChooseCompositeAlpha(t *testing.T) {
	assert.Equal(t, vk.CompositeAlphaOpaqueBit,
		chooseCompositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit|vk.CompositeAlphaInheritBit)))
	assert.Equal(t, vk.CompositeAlphaInheritBit,
		chooseCompositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit)))
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, chooseCompositeAlpha(0))
}

func TestPresentSemaphore(t *testing.T) {
	// a swapchain of three images while the frame ring also has three slots,
	// the semaphore must follow the acquired image and not the slot
	var handles [3]byte
	semaphores := make([]vk.Semaphore, len(handles))
	for i := range handles {
		semaphores[i] = vk.Semaphore(unsafe.Pointer(&handles[i]))
	}

	for idx := range semaphores {
		s, err := presentSemaphore(semaphores, uint32(idx))
		assert.NoError(t, err)
		assert.Equal(t, semaphores[idx], s)
	}

	_, err := presentSemaphore(semaphores, 3)
	assert.Error(t, err)
	_, err = presentSemaphore(nil, 0)
	assert.Error(t, err)
}

func TestStageOf(t *testing.T) {
	stage, err := stageOf(shader.VertexType)
	assert.NoError(t, err)
	assert.Equal(t, vk.ShaderStageVertexBit, stage)

	stage, err = stageOf(shader.FragmentType)
	assert.NoError(t, err)
	assert.Equal(t, vk.ShaderStageFragmentBit, stage)

	_, err = stageOf(shader.UnknownType)
	assert.Error(t, err)
}
