// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"context"
	"fmt"
	"time"

	vk "github.com/vulkan-go/vulkan"
)

// fenceWaitSlice bounds a single blocking wait so cancellation is noticed
const fenceWaitSlice = 100 * time.Millisecond

// vulkanFence gives a binary vk.Fence counter semantics.
// Each submission arms the fence with the next value, once the fence
// is signalled that value counts as completed.
type vulkanFence struct {
	device vk.Device
	fence  vk.Fence

	pending   uint64
	completed uint64
}

func newVulkanFence(device vk.Device) (*vulkanFence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(device, &fci, nil, &fence)); err != nil {
		return nil, fmt.Errorf("vk.CreateFence(): %w", err)
	}
	return &vulkanFence{
		device: device,
		fence:  fence,
	}, nil
}

// Completed implements frame.Fence
func (f *vulkanFence) Completed() uint64 {
	if f.pending > f.completed && vk.GetFenceStatus(f.device, f.fence) == vk.Success {
		f.completed = f.pending
	}
	return f.completed
}

// Wait implements frame.Fence
func (f *vulkanFence) Wait(ctx context.Context, value uint64) error {
	if value > f.pending {
		return fmt.Errorf("fence value %d was never submitted, last is %d", value, f.pending)
	}
	for f.Completed() < value {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch res := vk.WaitForFences(f.device, 1, []vk.Fence{f.fence}, vk.True, uint64(fenceWaitSlice)); res {
		case vk.Success, vk.Timeout:
		default:
			return fmt.Errorf("vk.WaitForFences(): %w", vk.Error(res))
		}
	}
	return nil
}

// arm resets the fence for a submission that completes value
func (f *vulkanFence) arm(value uint64) (vk.Fence, error) {
	if f.Completed() < f.pending {
		return nil, fmt.Errorf("fence still in flight with value %d", f.pending)
	}
	if value <= f.pending {
		return nil, fmt.Errorf("fence value %d does not increase past %d", value, f.pending)
	}
	if err := vk.Error(vk.ResetFences(f.device, 1, []vk.Fence{f.fence})); err != nil {
		return nil, fmt.Errorf("vk.ResetFences(): %w", err)
	}
	f.pending = value
	return f.fence, nil
}

// disarm forgets a value whose submission failed
func (f *vulkanFence) disarm() {
	f.pending = f.completed
}

func (f *vulkanFence) destroy() {
	vk.DestroyFence(f.device, f.fence, nil)
}
