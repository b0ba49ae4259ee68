package renderer

import (
	"errors"
	"fmt"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

// Backend is the device-facing half of the frame loop. The Vulkan
// implementation lives in the vulkan subpackage; tests substitute fakes.
// Slot indices passed in always come from the Synchronizer built from
// SlotFences, so per-slot resources (command buffers, semaphores) are
// keyed by the same index on both sides.
type Backend interface {
	// SlotFences exposes one completion fence per frame slot, all
	// initially signaled.
	SlotFences() []CompletionFence

	// AcquireImage obtains the next swapchain image for the slot.
	// Returns ErrSurfaceOutOfDate when the swapchain must be recreated
	// before any rendering, ErrSurfaceSuboptimal when the image is
	// usable but stale.
	AcquireImage(slot int) (uint32, error)

	// Record fills the slot's command buffer for the given image:
	// simulation dispatch, ownership barrier, then the render pass.
	Record(slot int, imageIndex uint32, dt float32) error

	// Submit queues the slot's command buffer. The submission signals
	// the slot's fence on retirement.
	Submit(slot int, imageIndex uint32) error

	// Present hands the image to the presentation engine. May return
	// ErrSurfaceOutOfDate or ErrSurfaceSuboptimal.
	Present(slot int, imageIndex uint32) error

	// Recreate rebuilds the swapchain and everything derived from it
	// for the new surface extent. Callers have already drained all
	// in-flight work.
	Recreate(width, height uint32) error

	// Shutdown releases device resources. In-flight work has been
	// drained by the caller.
	Shutdown()
}

// FrameState tracks where the loop is inside one frame. Exported for
// inspection; the loop itself is single-goroutine.
type FrameState int

const (
	StateIdle FrameState = iota
	StateAcquiring
	StateRecording
	StateSubmitted
	StatePresenting
	StateRecreating
	StateShutdown
)

func (s FrameState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateRecording:
		return "recording"
	case StateSubmitted:
		return "submitted"
	case StatePresenting:
		return "presenting"
	case StateRecreating:
		return "recreating"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Loop drives frames through acquire, record, submit and present,
// bounded to SlotCount frames in flight. All methods must be called
// from the same goroutine.
type Loop struct {
	backend Backend
	sync    *Synchronizer
	state   FrameState

	width, height uint32
	pendingResize bool
	minimized     bool
}

func NewLoop(backend Backend, sync *Synchronizer, width, height uint32) *Loop {
	return &Loop{
		backend: backend,
		sync:    sync,
		state:   StateIdle,
		width:   width,
		height:  height,
	}
}

func (l *Loop) State() FrameState { return l.state }

// NotifyResize records the new surface extent. The swapchain is rebuilt
// lazily at the start of the next frame. A zero extent means the window
// is minimized and frames are skipped entirely until it reappears.
func (l *Loop) NotifyResize(width, height uint32) {
	l.width, l.height = width, height
	l.minimized = width == 0 || height == 0
	l.pendingResize = !l.minimized
}

// DrawFrame runs one full frame. A dropped frame (surface out of date,
// pending resize) returns nil after recreating the swapchain; the caller
// just moves on to the next frame. Any non-nil error is fatal.
func (l *Loop) DrawFrame(dt float32) error {
	if l.state == StateShutdown {
		return fmt.Errorf("draw after shutdown")
	}
	if l.minimized {
		return nil
	}
	if l.pendingResize {
		if err := l.recreate(); err != nil {
			return err
		}
	}

	l.state = StateAcquiring
	slot, err := l.sync.AcquireSlot()
	if err != nil {
		l.state = StateIdle
		return err
	}

	imageIndex, err := l.backend.AcquireImage(slot)
	switch {
	case errors.Is(err, ErrSurfaceOutOfDate):
		// Nothing was recorded or submitted; the fence is still
		// signaled, so the slot is dropped without touching it.
		if err := l.recreate(); err != nil {
			return err
		}
		l.state = StateIdle
		return nil
	case errors.Is(err, ErrSurfaceSuboptimal):
		// The image is still presentable; render the frame and rebuild
		// the swapchain before the next one.
		l.pendingResize = true
	case err != nil:
		l.state = StateIdle
		return fmt.Errorf("acquiring image: %w", err)
	}

	l.state = StateRecording
	if err := l.backend.Record(slot, imageIndex, dt); err != nil {
		l.state = StateIdle
		return fmt.Errorf("recording frame: %w", err)
	}

	// The fence is reset only now that a submission is certain.
	if err := l.sync.PrepareSubmit(slot); err != nil {
		l.state = StateIdle
		return err
	}
	if err := l.backend.Submit(slot, imageIndex); err != nil {
		l.state = StateIdle
		return fmt.Errorf("submitting frame: %w", err)
	}
	l.state = StateSubmitted

	l.state = StatePresenting
	err = l.backend.Present(slot, imageIndex)
	l.sync.Advance()
	switch {
	case errors.Is(err, ErrSurfaceOutOfDate), errors.Is(err, ErrSurfaceSuboptimal):
		if err := l.recreate(); err != nil {
			return err
		}
	case err != nil:
		l.state = StateIdle
		return fmt.Errorf("presenting frame: %w", err)
	}

	l.state = StateIdle
	return nil
}

// recreate drains all in-flight frames, then rebuilds the swapchain for
// the current extent.
func (l *Loop) recreate() error {
	l.state = StateRecreating
	core.LogDebug("recreating swapchain at %dx%d", l.width, l.height)
	if err := l.sync.Drain(); err != nil {
		return err
	}
	if err := l.backend.Recreate(l.width, l.height); err != nil {
		core.LogError("swapchain recreation failed: %v", err)
		return fmt.Errorf("recreating swapchain: %w", err)
	}
	l.pendingResize = false
	l.state = StateIdle
	return nil
}

// Shutdown drains every in-flight frame with a bounded wait, then tears
// the backend down. Safe to call once; further draws fail.
func (l *Loop) Shutdown() error {
	if l.state == StateShutdown {
		return nil
	}
	core.LogInfo("renderer shutting down")
	err := l.sync.Drain()
	if err != nil {
		// A stuck fence means the device faulted; teardown proceeds
		// anyway so process exit is not blocked.
		core.LogError("shutdown drain: %v", err)
	}
	l.backend.Shutdown()
	l.state = StateShutdown
	return err
}
