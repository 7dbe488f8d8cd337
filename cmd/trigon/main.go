// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/trigon/core"
	"github.com/devblok/trigon/shader"
	"github.com/devblok/trigon/window"
)

func init() {
	runtime.LockOSThread()
}

var (
	envFile    = flag.String("env", "", "Load configuration from this dotenv file")
	shaderPath = flag.String("shaders", "", "Shader directory or .kar archive, bundled shaders when empty")
	debug      = flag.Bool("vkdbg", false, "Load Vulkan validation layers")

	// Profiling
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
)

var frameCounter int64

// app holds everything created at start-up, released in reverse order
type app struct {
	window   *window.Window
	instance *core.VulkanInstance
	renderer *core.VulkanRenderer
}

func (a *app) destroy() {
	if a.renderer != nil {
		a.renderer.Destroy()
	}
	if a.instance != nil {
		a.instance.Destroy()
	}
	if a.window != nil {
		a.window.Destroy()
	}
}

func main() {
	os.Exit(realMain())
}

// realMain returns the exit code, deferred profile writers run before exit
func realMain() int {
	flag.Parse()

	configuration, err := core.LoadConfiguration(*envFile)
	if err != nil {
		return fail("Configuration", err)
	}
	log.SetLevel(configuration.LogLevel)
	if *debug {
		configuration.Renderer.DebugMode = true
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return fail("Profiling", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fail("Profiling", err)
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			return fail("Profiling", err)
		}
		defer f.Close()
		if err := trace.Start(f); err != nil {
			return fail("Profiling", err)
		}
		defer trace.Stop()
	}

	a := &app{}
	if err := a.start(configuration); err != nil {
		a.destroy()
		return fail("Initialisation", err)
	}

	run(a, configuration)
	a.destroy()

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.WithError(err).Error("memory profile")
			return 1
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.WithError(err).Error("memory profile")
			return 1
		}
	}
	return 0
}

// start runs the whole start-up sequence, what was created is kept in a
// so it can be released on failure
func (a *app) start(configuration core.Configuration) error {
	w, err := window.New(configuration.Window)
	if err != nil {
		return err
	}
	a.window = w

	instance, err := core.NewVulkanInstance(core.DefaultVulkanApplicationInfo, w.VulkanProcAddr(), core.InstanceConfiguration{
		DebugMode:  configuration.Renderer.DebugMode,
		Extensions: w.VulkanInstanceExtensions(),
	})
	if err != nil {
		return err
	}
	a.instance = instance

	surface, err := w.CreateSurface(instance.Instance())
	if err != nil {
		return err
	}
	instance.SetSurface(surface)

	infos := instance.PhysicalDevicesInfo()
	idx, err := core.SelectAdapter(infos, configuration.Renderer.DeviceExtensions)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"adapter": infos[idx].Name,
		"type":    infos[idx].Type,
	}).Info("adapter selected")

	src, closer, err := shader.Open(*shaderPath)
	if err != nil {
		return err
	}
	shaders, err := shader.LoadSet(src)
	if cerr := closer.Close(); cerr != nil {
		log.WithError(cerr).Warn("closing shader source")
	}
	if err != nil {
		return err
	}

	// the drawable size can differ from the window size on high DPI displays
	configuration.Renderer.ScreenWidth, configuration.Renderer.ScreenHeight = w.DrawableSize()

	renderer := core.NewVulkanRenderer(instance, instance.AvailableDevices()[idx], shaders, configuration.Renderer)
	a.renderer = renderer
	return renderer.Initialise()
}

// run is the message loop, one frame per tick while the window is running
func run(a *app, configuration core.Configuration) {
	timeService := core.NewTime(configuration.Time)
	defer timeService.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	/* Frame counter loop */
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.WithFields(log.Fields{
					"frames":   atomic.SwapInt64(&frameCounter, 0),
					"cgoCalls": runtime.NumCgoCall(),
				}).Debug("frame rate")
			}
		}
	}()

	for a.window.Pump() {
		if a.window.Resized() {
			width, height := a.window.DrawableSize()
			if err := a.renderer.Resize(width, height); err != nil {
				log.WithError(err).Error("resize failed")
				a.window.Stop()
				break
			}
		}

		if err := a.renderer.Render(ctx); err != nil {
			log.WithError(err).Error("render failed")
			a.window.Stop()
			break
		}
		atomic.AddInt64(&frameCounter, 1)

		<-timeService.FpsTicker().C
	}
	log.Info("message loop exited")

	cancel()
	wg.Wait()
}

// showError is replaced in tests, the message box needs a display
var showError = window.ShowError

// fail reports a start-up error and returns the exit code for it
func fail(stage string, err error) int {
	log.WithError(err).Errorf("%s failed", stage)
	showError(fmt.Sprintf("%s failed", stage), err.Error(), nil)
	return 1
}
