// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/trigon/core"
	"github.com/devblok/trigon/window"
)

func init() {
	runtime.LockOSThread()
}

var debug = flag.Bool("vkdbg", false, "Load Vulkan validation layers")

// report is what gets printed
type report struct {
	Adapters []core.PhysicalDeviceInfo `json:"adapters"`
	Selected int                       `json:"selected"`
	Reason   string                    `json:"reason,omitempty"`
}

func main() {
	flag.Parse()

	if err := printInfo(); err != nil {
		log.Fatal(err)
	}
}

func printInfo() error {
	configuration := core.DefaultConfiguration
	configuration.Window.Hidden = true

	// a hidden window is needed to tell which queues can present
	w, err := window.New(configuration.Window)
	if err != nil {
		return err
	}
	defer w.Destroy()

	instance, err := core.NewVulkanInstance(core.DefaultVulkanApplicationInfo, w.VulkanProcAddr(), core.InstanceConfiguration{
		DebugMode:  *debug,
		Extensions: w.VulkanInstanceExtensions(),
	})
	if err != nil {
		return err
	}
	defer instance.Destroy()

	surface, err := w.CreateSurface(instance.Instance())
	if err != nil {
		return err
	}
	instance.SetSurface(surface)

	r := report{Adapters: instance.PhysicalDevicesInfo()}
	r.Selected, err = core.SelectAdapter(r.Adapters, configuration.Renderer.DeviceExtensions)
	if err != nil {
		r.Reason = err.Error()
	}

	bytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s\n", bytes)
	return nil
}
