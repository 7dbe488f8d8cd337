// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// undefinedExtent means the surface size is decided by the swapchain
const undefinedExtent = ^uint32(0)

// chooseSurfaceFormat prefers 8 bit BGRA in sRGB colour space
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	preferred := vk.SurfaceFormat{
		Format:     vk.FormatB8g8r8a8Unorm,
		ColorSpace: vk.ColorspaceSrgbNonlinear,
	}
	if len(formats) == 0 || (len(formats) == 1 && formats[0].Format == vk.FormatUndefined) {
		return preferred
	}
	for _, f := range formats {
		if f.Format == preferred.Format && f.ColorSpace == preferred.ColorSpace {
			return f
		}
	}
	return formats[0]
}

// chooseExtent uses the surface size when it has one,
// otherwise the wanted size clamped to what the surface allows
func chooseExtent(current, min, max vk.Extent2D, width, height uint32) vk.Extent2D {
	if current.Width != undefinedExtent {
		return current
	}
	return vk.Extent2D{
		Width:  clamp(width, min.Width, max.Width),
		Height: clamp(height, min.Height, max.Height),
	}
}

// chooseImageCount asks for want images within the surface limits,
// a max of zero means no limit
func chooseImageCount(want, min, max uint32) uint32 {
	if want < min {
		want = min
	}
	if max > 0 && want > max {
		want = max
	}
	return want
}

func clamp(val, min, max uint32) uint32 {
	if val < min {
		return min
	} else if val > max {
		return max
	}
	return val
}

func chooseCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	compositeAlphaFlags := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for _, flag := range compositeAlphaFlags {
		if supported&vk.CompositeAlphaFlags(flag) != 0 {
			return flag
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func (v *VulkanRenderer) chooseImageFormat() error {
	var surfaceFormatCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.surface, &surfaceFormatCount, nil)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}

	surfaceFormats := make([]vk.SurfaceFormat, surfaceFormatCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.surface, &surfaceFormatCount, surfaceFormats)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	for i := range surfaceFormats {
		surfaceFormats[i].Deref()
	}

	format := chooseSurfaceFormat(surfaceFormats)
	v.imageFormat = format.Format
	v.imageColorspace = format.ColorSpace
	return nil
}

// createSwapchain creates the swapchain, handing over from oldSwapchain when not nil
func (v *VulkanRenderer) createSwapchain(oldSwapchain vk.Swapchain) error {
	var surfaceCapabilities vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(v.physicalDevice, v.surface, &surfaceCapabilities)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceCapabilities(): %w", err)
	}
	surfaceCapabilities.Deref()
	surfaceCapabilities.CurrentExtent.Deref()
	surfaceCapabilities.MinImageExtent.Deref()
	surfaceCapabilities.MaxImageExtent.Deref()

	v.extent = chooseExtent(
		surfaceCapabilities.CurrentExtent,
		surfaceCapabilities.MinImageExtent,
		surfaceCapabilities.MaxImageExtent,
		v.configuration.ScreenWidth,
		v.configuration.ScreenHeight,
	)
	if v.extent.Width == 0 || v.extent.Height == 0 {
		return errSurfaceEmpty
	}

	imageCount := chooseImageCount(v.configuration.SwapchainSize,
		surfaceCapabilities.MinImageCount, surfaceCapabilities.MaxImageCount)

	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          v.surface,
		MinImageCount:    imageCount,
		ImageFormat:      v.imageFormat,
		ImageColorSpace:  v.imageColorspace,
		ImageExtent:      v.extent,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     surfaceCapabilities.CurrentTransform,
		CompositeAlpha:   chooseCompositeAlpha(surfaceCapabilities.SupportedCompositeAlpha),
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
	}
	if v.families.graphics != v.families.present {
		scci.ImageSharingMode = vk.SharingModeConcurrent
		scci.QueueFamilyIndexCount = 2
		scci.PQueueFamilyIndices = []uint32{v.families.graphics, v.families.present}
	}

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(v.logicalDevice, &scci, nil, &swapchain)); err != nil {
		return fmt.Errorf("vk.CreateSwapchain(): %w", err)
	}
	v.swapchain = swapchain

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(v.logicalDevice, v.swapchain, &numImages, nil)); err != nil {
		return fmt.Errorf("vk.GetSwapchainImages(num): %w", err)
	}

	v.swapchainImages = make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(v.logicalDevice, v.swapchain, &numImages, v.swapchainImages)); err != nil {
		return fmt.Errorf("vk.GetSwapchainImages(images): %w", err)
	}

	log.WithFields(log.Fields{
		"images": numImages,
		"width":  v.extent.Width,
		"height": v.extent.Height,
	}).Debug("swapchain created")
	return nil
}

// createRenderTargets creates one view per swapchain image,
// the views are what the render pass writes into
func (v *VulkanRenderer) createRenderTargets() error {
	for idx, image := range v.swapchainImages {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   v.imageFormat,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var imageView vk.ImageView
		if err := vk.Error(vk.CreateImageView(v.logicalDevice, &ivci, nil, &imageView)); err != nil {
			return fmt.Errorf("vk.CreateImageView()[%d]: %w", idx, err)
		}
		v.renderTargets = append(v.renderTargets, imageView)
	}
	return nil
}

func (v *VulkanRenderer) createFramebuffers() error {
	for idx, view := range v.renderTargets {
		attachments := []vk.ImageView{view}
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      v.renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           v.extent.Width,
			Height:          v.extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if err := vk.Error(vk.CreateFramebuffer(v.logicalDevice, &fci, nil, &framebuffer)); err != nil {
			return fmt.Errorf("vk.CreateFramebuffer()[%d]: %w", idx, err)
		}
		v.framebuffers = append(v.framebuffers, framebuffer)
	}
	return nil
}

// presentSemaphore returns the render finished semaphore of the acquired image
func presentSemaphore(semaphores []vk.Semaphore, imageIdx uint32) (vk.Semaphore, error) {
	if int(imageIdx) >= len(semaphores) {
		return vk.Semaphore(vk.NullHandle), fmt.Errorf("no present semaphore for image %d of %d", imageIdx, len(semaphores))
	}
	return semaphores[imageIdx], nil
}

// createPresentSemaphores creates the render finished semaphore of every swapchain image
func (v *VulkanRenderer) createPresentSemaphores() error {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for idx := range v.swapchainImages {
		var renderFinished vk.Semaphore
		if err := vk.Error(vk.CreateSemaphore(v.logicalDevice, &sci, nil, &renderFinished)); err != nil {
			return fmt.Errorf("vk.CreateSemaphore()[%d]: %w", idx, err)
		}
		v.renderFinished = append(v.renderFinished, renderFinished)
	}
	return nil
}

func (v *VulkanRenderer) destroySwapchainResources() {
	for _, s := range v.renderFinished {
		vk.DestroySemaphore(v.logicalDevice, s, nil)
	}
	v.renderFinished = nil

	for _, fb := range v.framebuffers {
		vk.DestroyFramebuffer(v.logicalDevice, fb, nil)
	}
	v.framebuffers = nil

	for _, iv := range v.renderTargets {
		vk.DestroyImageView(v.logicalDevice, iv, nil)
	}
	v.renderTargets = nil

	// swapchain images belong to the swapchain
	v.swapchainImages = nil
}

// recreateSwapchain rebuilds everything that depends on the surface size
func (v *VulkanRenderer) recreateSwapchain() error {
	if err := v.waitIdle(); err != nil {
		return err
	}
	v.destroySwapchainResources()

	oldSwapchain := v.swapchain
	err := v.createSwapchain(oldSwapchain)
	if oldSwapchain != nil {
		vk.DestroySwapchain(v.logicalDevice, oldSwapchain, nil)
	}
	if err != nil {
		v.swapchain = nil
		return err
	}

	if err := v.createRenderTargets(); err != nil {
		return err
	}
	if err := v.createFramebuffers(); err != nil {
		return err
	}
	return v.createPresentSemaphores()
}
