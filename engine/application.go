package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/assets"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/config"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/platform"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/renderer"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/renderer/vulkan"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/scene"
)

const (
	keyRotationStep  = math.Pi / 32
	dragRotationStep = math.Pi / 1024
	// One full orbit every 30 seconds while autorotating.
	autorotateSpeed = 2 * math.Pi / 30
)

type Stage uint8

const (
	StageUninitialized Stage = iota
	StageInitialized
	StageRunning
	StageShutDown
)

// Application wires the platform, the scene and the renderer together
// and owns the main loop.
type Application struct {
	cfg      *config.Config
	platform *platform.Platform
	backend  *vulkan.VulkanRenderer
	loop     *renderer.Loop
	scn      *scene.Scene
	clock    *core.FrameClock
	watcher  *assets.ShaderWatcher

	stage       Stage
	autorotate  bool
	cameraDirty bool
}

func New(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	return &Application{
		cfg:      cfg,
		platform: p,
		clock:    core.NewFrameClock(),
		stage:    StageUninitialized,
	}, nil
}

func (a *Application) Initialize() error {
	if err := a.platform.Startup(a.cfg.Window.Title, a.cfg.Window.Width, a.cfg.Window.Height); err != nil {
		return err
	}

	width, height := a.platform.FramebufferSize()
	a.scn = scene.Setup(a.cfg, width, height)

	shaders, err := assets.LoadShaders(a.cfg.Renderer.ShaderDir)
	if err != nil {
		return err
	}

	a.backend = vulkan.New(a.platform, &a.cfg.Renderer)
	if err := a.backend.Initialize(a.cfg.Window.Title, width, height, a.scn, shaders); err != nil {
		return err
	}

	timeout := time.Duration(a.cfg.Renderer.SyncTimeoutMs) * time.Millisecond
	sync, err := renderer.NewSynchronizer(a.backend.SlotFences(), timeout)
	if err != nil {
		return err
	}
	a.loop = renderer.NewLoop(a.backend, sync, width, height)

	a.platform.SetHandlers(platform.Handlers{
		OnResize:    a.onResize,
		OnKey:       a.onKey,
		OnMouseDrag: a.onMouseDrag,
	})

	if a.cfg.Renderer.WatchShaders {
		watcher, err := assets.NewShaderWatcher(a.cfg.Renderer.ShaderDir)
		if err != nil {
			// Hot reload is a convenience; run without it.
			core.LogWarn("shader watching disabled: %v", err)
		} else {
			a.watcher = watcher
		}
	}

	a.stage = StageInitialized
	core.LogInfo("application initialized")
	return nil
}

// Run drives the main loop until the window closes or a frame fails.
func (a *Application) Run() error {
	if a.stage != StageInitialized {
		return fmt.Errorf("application not initialized")
	}
	a.stage = StageRunning

	// Initialization took arbitrarily long; it must not count as the
	// first frame's dt.
	a.clock.Rebase()

	lastFPSLog := time.Now()
	for a.platform.PumpMessages() {
		a.clock.Tick()
		dt := a.clock.LastFrameSecs()

		if time.Since(lastFPSLog) >= 5*time.Second {
			core.LogDebug("%.1f fps", a.clock.FPS())
			lastFPSLog = time.Now()
		}

		if a.autorotate {
			a.scn.Camera.RotateHorizontally(autorotateSpeed * dt)
			a.cameraDirty = true
		}
		if a.cameraDirty {
			if err := a.backend.UpdateCamera(); err != nil {
				return err
			}
			a.cameraDirty = false
		}

		if a.watcher != nil {
			select {
			case shaders := <-a.watcher.Reloaded:
				if err := a.backend.ReloadShaders(shaders); err != nil {
					core.LogWarn("shader reload failed, keeping previous pipelines: %v", err)
				}
			default:
			}
		}

		if err := a.loop.DrawFrame(dt); err != nil {
			core.LogError("frame failed: %v", err)
			return err
		}
	}
	return nil
}

func (a *Application) Shutdown() error {
	if a.stage == StageShutDown {
		return nil
	}
	a.stage = StageShutDown
	core.LogInfo("shutting down, last measured %.1f fps", a.clock.FPS())

	if a.watcher != nil {
		a.watcher.Close()
	}
	var err error
	if a.loop != nil {
		err = a.loop.Shutdown()
	}
	if platformErr := a.platform.Shutdown(); err == nil {
		err = platformErr
	}
	return err
}

func (a *Application) onResize(width, height uint32) {
	if a.loop != nil {
		a.loop.NotifyResize(width, height)
	}
}

func (a *Application) onKey(key glfw.Key) {
	switch key {
	case glfw.KeyLeft:
		a.scn.Camera.RotateHorizontally(-keyRotationStep)
		a.cameraDirty = true
	case glfw.KeyRight:
		a.scn.Camera.RotateHorizontally(keyRotationStep)
		a.cameraDirty = true
	case glfw.KeyUp:
		a.scn.Camera.RotateVertically(-keyRotationStep)
		a.cameraDirty = true
	case glfw.KeyDown:
		a.scn.Camera.RotateVertically(keyRotationStep)
		a.cameraDirty = true
	case glfw.KeyR:
		a.autorotate = !a.autorotate
	}
}

func (a *Application) onMouseDrag(dx, dy float64) {
	if dx != 0 {
		a.scn.Camera.RotateHorizontally(float32(dx) * dragRotationStep)
		a.cameraDirty = true
	}
	if dy != 0 {
		a.scn.Camera.RotateVertically(float32(dy) * dragRotationStep)
		a.cameraDirty = true
	}
}
