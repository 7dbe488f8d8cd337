// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	vk "github.com/vulkan-go/vulkan"
)

const noQueue = ^uint32(0)

// queueFamilies holds family indices, noQueue when not found
type queueFamilies struct {
	graphics uint32
	present  uint32
}

func (q queueFamilies) complete() bool {
	return q.graphics != noQueue && q.present != noQueue
}

// findQueueFamilies looks for a graphics family and a family that can
// present to surface, preferring one family that does both.
// Present is never found for a nil surface.
func findQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) queueFamilies {
	families := queueFamilies{graphics: noQueue, present: noQueue}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	properties := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, properties)

	for i := uint32(0); i < queueFamilyCount; i++ {
		properties[i].Deref()
		graphics := properties[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0

		var present bool
		if surface != nil {
			var supportsPresent vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent)
			present = supportsPresent.B()
		}

		if graphics && present {
			return queueFamilies{graphics: i, present: i}
		}
		if graphics && families.graphics == noQueue {
			families.graphics = i
		}
		if present && families.present == noQueue {
			families.present = i
		}
	}
	return families
}
