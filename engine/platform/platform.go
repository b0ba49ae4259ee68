package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Handlers are invoked from glfw callbacks on the main thread. Nil
// handlers are skipped.
type Handlers struct {
	OnResize         func(width, height uint32)
	OnKey            func(key glfw.Key)
	OnMouseDrag      func(dx, dy float64)
	OnCloseRequested func()
}

type Platform struct {
	Window *glfw.Window

	handlers Handlers

	mouseDown   bool
	lastCursorX float64
	lastCursorY float64
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.Show()

	return nil
}

func (p *Platform) SetHandlers(h Handlers) {
	p.handlers = h
}

// PumpMessages processes pending window events. Returns false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	if p.Window.ShouldClose() {
		if p.handlers.OnCloseRequested != nil {
			p.handlers.OnCloseRequested()
		}
		return false
	}
	return true
}

// FramebufferSize returns the drawable surface size in pixels, which can
// differ from the window size on high-DPI displays.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) Shutdown() error {
	glfw.Terminate()
	return nil
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}
	if key == glfw.KeyEscape {
		w.SetShouldClose(true)
		return
	}
	if p.handlers.OnKey != nil {
		p.handlers.OnKey(key)
	}
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button == glfw.MouseButtonLeft {
		p.mouseDown = action == glfw.Press
	}
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	if p.mouseDown && p.handlers.OnMouseDrag != nil {
		p.handlers.OnMouseDrag(xpos-p.lastCursorX, ypos-p.lastCursorY)
	}
	p.lastCursorX = xpos
	p.lastCursorY = ypos
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if p.handlers.OnResize != nil {
		p.handlers.OnResize(uint32(width), uint32(height))
	}
}
