// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
	"strings"

	vk "github.com/vulkan-go/vulkan"
)

// ErrNoSuitableAdapter is returned when no physical device can render to the window
var ErrNoSuitableAdapter = errors.New("no suitable adapter found")

// Rejection reasons reported by AdapterIsSuitable
const (
	reasonInvalid    = "device info could not be read"
	reasonSoftware   = "software adapter"
	reasonNoGraphics = "no graphics queue"
	reasonNoPresent  = "no queue can present to the surface"
)

// AdapterIsSuitable checks if the device can run the pipeline.
// If not suitable string contains the reason.
func AdapterIsSuitable(info PhysicalDeviceInfo, required []string) (bool, string) {
	switch {
	case info.Invalid:
		return false, reasonInvalid
	case info.Type == vk.PhysicalDeviceTypeCpu:
		return false, reasonSoftware
	case !info.GraphicsQueue:
		return false, reasonNoGraphics
	case !info.PresentQueue:
		return false, reasonNoPresent
	}

	available := make(map[string]bool, len(info.Extensions))
	for _, ext := range info.Extensions {
		available[ext] = true
	}
	for _, ext := range required {
		if !available[strings.TrimRight(ext, "\x00")] {
			return false, "missing extension " + strings.TrimRight(ext, "\x00")
		}
	}
	return true, ""
}

func adapterRank(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 3
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 2
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 1
	}
	return 0
}

// SelectAdapter picks the device to render with. Unsuitable devices
// are skipped, discrete beats integrated beats virtual beats the rest,
// and among equals the first enumerated one wins.
func SelectAdapter(infos []PhysicalDeviceInfo, required []string) (int, error) {
	best := -1
	var reasons []string
	for idx, info := range infos {
		if ok, reason := AdapterIsSuitable(info, required); !ok {
			reasons = append(reasons, fmt.Sprintf("%q: %s", info.Name, reason))
			continue
		}
		if best < 0 || adapterRank(info.Type) > adapterRank(infos[best].Type) {
			best = idx
		}
	}
	if best < 0 {
		if len(reasons) == 0 {
			return -1, ErrNoSuitableAdapter
		}
		return -1, fmt.Errorf("%w (%s)", ErrNoSuitableAdapter, strings.Join(reasons, "; "))
	}
	return best, nil
}
