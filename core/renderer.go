// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/trigon/frame"
	"github.com/devblok/trigon/model"
	"github.com/devblok/trigon/shader"
)

// destroyTimeout bounds how long Destroy waits for frames in flight
const destroyTimeout = 5 * time.Second

// errSurfaceEmpty means the window has no drawable area, usually minimised
var errSurfaceEmpty = errors.New("surface has zero extent")

// NewVulkanRenderer creates a renderer drawing to the instance surface
// with the given physical device. Nothing is created on the GPU
// until Initialise is called.
func NewVulkanRenderer(instance Instance, device vk.PhysicalDevice, shaders shader.Set, cfg RendererConfiguration) *VulkanRenderer {
	return &VulkanRenderer{
		configuration:  cfg,
		surface:        instance.Surface(),
		physicalDevice: device,
		shaders:        shaders,
	}
}

type shaderModule struct {
	module vk.ShaderModule
	stage  vk.ShaderStageFlagBits
}

// VulkanRenderer is a Vulkan API renderer
type VulkanRenderer struct {
	configuration RendererConfiguration

	surface vk.Surface
	shaders shader.Set

	logicalDevice  vk.Device
	physicalDevice vk.PhysicalDevice
	families       queueFamilies
	graphicsQueue  vk.Queue
	presentQueue   vk.Queue

	imageFormat     vk.Format
	imageColorspace vk.ColorSpace
	extent          vk.Extent2D

	swapchain       vk.Swapchain
	swapchainImages []vk.Image
	renderTargets   []vk.ImageView
	framebuffers    []vk.Framebuffer

	// one of each per frame slot
	commandPools   []vk.CommandPool
	commandBuffers []vk.CommandBuffer
	fences         []*vulkanFence
	imageAvailable []vk.Semaphore
	ring           *frame.Ring

	// one per swapchain image, presentation may still hold it
	// after the slot that signalled it is reused
	renderFinished []vk.Semaphore

	pipelineLayout vk.PipelineLayout
	renderPass     vk.RenderPass
	shaderModules  []shaderModule
	pipelineCache  vk.PipelineCache
	pipeline       vk.Pipeline

	allocator    *MemoryAllocator
	vertexBuffer Buffer
	vertexCount  uint32
}

// Initialise implements interface
func (v *VulkanRenderer) Initialise() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"device", v.createDevice},
		{"image format", v.chooseImageFormat},
		{"swapchain", func() error { return v.createSwapchain(nil) }},
		{"render targets", v.createRenderTargets},
		{"render pass", v.createRenderPass},
		{"framebuffers", v.createFramebuffers},
		{"present semaphores", v.createPresentSemaphores},
		{"command pools", v.createCommandPools},
		{"synchronization", v.createSynchronization},
		{"pipeline layout", v.createPipelineLayout},
		{"shader modules", v.createShaderModules},
		{"pipeline cache", v.createPipelineCache},
		{"pipeline", v.createPipeline},
		{"vertex buffer", v.createVertexBuffer},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return err
		}
		log.WithField("step", step.name).Debug("renderer initialised")
	}
	return nil
}

func (v *VulkanRenderer) createDevice() error {
	v.families = findQueueFamilies(v.physicalDevice, v.surface)
	if !v.families.complete() {
		return errors.New("vulkan error: could not find graphics and present queue families")
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: v.families.graphics,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}
	if v.families.present != v.families.graphics {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: v.families.present,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		})
	}

	var vkDevice vk.Device
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(v.configuration.DeviceExtensions)),
		PpEnabledExtensionNames: safeStrings(v.configuration.DeviceExtensions),
	}
	if err := vk.Error(vk.CreateDevice(v.physicalDevice, &dci, nil, &vkDevice)); err != nil {
		return fmt.Errorf("vk.CreateDevice(): %w", err)
	}
	v.logicalDevice = vkDevice

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(vkDevice, v.families.graphics, 0, &graphicsQueue)
	vk.GetDeviceQueue(vkDevice, v.families.present, 0, &presentQueue)
	v.graphicsQueue = graphicsQueue
	v.presentQueue = presentQueue
	return nil
}

// createCommandPools creates a pool and a primary command buffer per
// frame slot so a slot can be reset while the others are in flight
func (v *VulkanRenderer) createCommandPools() error {
	for slot := 0; slot < FramebufferCount; slot++ {
		cpci := vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: v.families.graphics,
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		}

		var commandPool vk.CommandPool
		if err := vk.Error(vk.CreateCommandPool(v.logicalDevice, &cpci, nil, &commandPool)); err != nil {
			return fmt.Errorf("vk.CreateCommandPool()[%d]: %w", slot, err)
		}
		v.commandPools = append(v.commandPools, commandPool)

		cbai := vk.CommandBufferAllocateInfo{
			SType:              vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        commandPool,
			Level:              vk.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		}
		commandBuffers := make([]vk.CommandBuffer, 1)
		if err := vk.Error(vk.AllocateCommandBuffers(v.logicalDevice, &cbai, commandBuffers)); err != nil {
			return fmt.Errorf("vk.AllocateCommandBuffers()[%d]: %w", slot, err)
		}
		v.commandBuffers = append(v.commandBuffers, commandBuffers[0])
	}
	return nil
}

func (v *VulkanRenderer) createSynchronization() error {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	fences := make([]frame.Fence, 0, FramebufferCount)
	for slot := 0; slot < FramebufferCount; slot++ {
		var imageAvailable vk.Semaphore
		if err := vk.Error(vk.CreateSemaphore(v.logicalDevice, &sci, nil, &imageAvailable)); err != nil {
			return fmt.Errorf("vk.CreateSemaphore()[%d]: %w", slot, err)
		}
		v.imageAvailable = append(v.imageAvailable, imageAvailable)

		fence, err := newVulkanFence(v.logicalDevice)
		if err != nil {
			return err
		}
		v.fences = append(v.fences, fence)
		fences = append(fences, fence)
	}

	ring, err := frame.NewRing(fences)
	if err != nil {
		return err
	}
	v.ring = ring
	return nil
}

func (v *VulkanRenderer) createVertexBuffer() error {
	v.allocator = NewMemoryAllocator(v.logicalDevice, v.physicalDevice)

	buffer, err := NewVertexBuffer(v.logicalDevice, model.Bytes(model.Triangle), v.allocator)
	if err != nil {
		return err
	}
	v.vertexBuffer = buffer
	v.vertexCount = uint32(len(model.Triangle))
	return nil
}

// Render implements interface
func (v *VulkanRenderer) Render(ctx context.Context) error {
	if v.swapchain == nil {
		// nothing to draw on until the window gets an area again
		return nil
	}

	if err := v.ring.Wait(ctx); err != nil {
		return err
	}
	slot := v.ring.Current()

	var imageIdx uint32
	switch res := vk.AcquireNextImage(v.logicalDevice, v.swapchain, vk.MaxUint64, v.imageAvailable[slot], vk.Fence(vk.NullHandle), &imageIdx); res {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		return v.rebuild()
	default:
		return fmt.Errorf("vk.AcquireNextImage(): %w", vk.Error(res))
	}

	renderFinished, err := presentSemaphore(v.renderFinished, imageIdx)
	if err != nil {
		return err
	}

	if err := v.record(slot, imageIdx); err != nil {
		return err
	}

	if err := v.ring.Signal(func(slot int, _ frame.Fence, value uint64) error {
		return v.submit(slot, renderFinished, value)
	}); err != nil {
		return err
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{v.swapchain},
		PImageIndices:      []uint32{imageIdx},
	}
	presentResult := vk.QueuePresent(v.presentQueue, &presentInfo)
	v.ring.Advance()

	switch presentResult {
	case vk.Success:
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return v.rebuild()
	default:
		return fmt.Errorf("vk.QueuePresent(): %w", vk.Error(presentResult))
	}
}

// submit executes the slot's command buffer, signals renderFinished
// and arms the slot's fence with value
func (v *VulkanRenderer) submit(slot int, renderFinished vk.Semaphore, value uint64) error {
	fence := v.fences[slot]
	handle, err := fence.arm(value)
	if err != nil {
		return err
	}

	submitInfo := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{v.imageAvailable[slot]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{v.commandBuffers[slot]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{renderFinished},
	}}
	if err := vk.Error(vk.QueueSubmit(v.graphicsQueue, 1, submitInfo, handle)); err != nil {
		fence.disarm()
		return fmt.Errorf("vk.QueueSubmit()[%d]: %w", slot, err)
	}
	return nil
}

// rebuild recreates the swapchain, an empty surface is not an error
func (v *VulkanRenderer) rebuild() error {
	err := v.recreateSwapchain()
	if errors.Is(err, errSurfaceEmpty) {
		log.Debug("surface is empty, rendering paused")
		return nil
	}
	return err
}

// Resize implements interface
func (v *VulkanRenderer) Resize(width, height uint32) error {
	v.configuration.ScreenWidth = width
	v.configuration.ScreenHeight = height
	log.WithFields(log.Fields{
		"width":  width,
		"height": height,
	}).Debug("resizing")
	return v.rebuild()
}

// waitIdle blocks until nothing submitted is still executing
func (v *VulkanRenderer) waitIdle() error {
	if err := vk.Error(vk.DeviceWaitIdle(v.logicalDevice)); err != nil {
		return fmt.Errorf("vk.DeviceWaitIdle(): %w", err)
	}
	return v.ring.Drain(context.Background())
}

// Destroy implements interface
func (v *VulkanRenderer) Destroy() {
	if v.logicalDevice == nil {
		return
	}

	if v.ring != nil {
		ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
		if err := v.ring.Drain(ctx); err != nil {
			log.WithError(err).Warn("frames still in flight on destroy")
		}
		cancel()
	}
	vk.DeviceWaitIdle(v.logicalDevice)

	v.vertexBuffer.Release()

	if v.pipeline != nil {
		vk.DestroyPipeline(v.logicalDevice, v.pipeline, nil)
	}
	if v.pipelineCache != nil {
		vk.DestroyPipelineCache(v.logicalDevice, v.pipelineCache, nil)
	}
	for _, sm := range v.shaderModules {
		vk.DestroyShaderModule(v.logicalDevice, sm.module, nil)
	}
	if v.pipelineLayout != nil {
		vk.DestroyPipelineLayout(v.logicalDevice, v.pipelineLayout, nil)
	}

	for _, f := range v.fences {
		f.destroy()
	}
	for _, s := range v.imageAvailable {
		vk.DestroySemaphore(v.logicalDevice, s, nil)
	}

	// freeing the pools frees their command buffers
	for _, p := range v.commandPools {
		vk.DestroyCommandPool(v.logicalDevice, p, nil)
	}

	v.destroySwapchainResources()
	if v.renderPass != nil {
		vk.DestroyRenderPass(v.logicalDevice, v.renderPass, nil)
	}
	if v.swapchain != nil {
		vk.DestroySwapchain(v.logicalDevice, v.swapchain, nil)
	}

	vk.DestroyDevice(v.logicalDevice, nil)
	v.logicalDevice = nil
}
