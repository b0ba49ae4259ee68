package renderer

import (
	"fmt"
	"time"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

// CompletionFence signals that all GPU work of one frame slot has
// retired. Implementations start signaled so the first acquisition of
// every slot does not block.
type CompletionFence interface {
	// Wait blocks until the fence signals or the timeout expires, in
	// which case it returns ErrSyncTimeout.
	Wait(timeout time.Duration) error
	// Reset unsignals the fence. Called only right before the submit
	// that will signal it again, so a dropped frame leaves the fence
	// signaled and the slot reusable.
	Reset() error
}

// Synchronizer hands out frame slots in strict round-robin order and
// enforces the frames-in-flight bound: acquiring a slot blocks until
// that slot's previous frame has fully retired.
type Synchronizer struct {
	fences  []CompletionFence
	timeout time.Duration
	current int
}

func NewSynchronizer(fences []CompletionFence, timeout time.Duration) (*Synchronizer, error) {
	if len(fences) == 0 {
		err := fmt.Errorf("synchronizer needs at least one frame slot")
		core.LogError(err.Error())
		return nil, err
	}
	return &Synchronizer{fences: fences, timeout: timeout}, nil
}

func (s *Synchronizer) SlotCount() int { return len(s.fences) }

// AcquireSlot blocks until the current slot's fence signals and returns
// the slot index. The wait is bounded; expiry is fatal and surfaces as
// ErrSyncTimeout. The fence is left signaled so the slot stays
// acquirable if the frame is dropped before submission.
func (s *Synchronizer) AcquireSlot() (int, error) {
	slot := s.current
	if err := s.fences[slot].Wait(s.timeout); err != nil {
		core.LogError("frame slot %d: %v", slot, err)
		return 0, fmt.Errorf("acquiring frame slot %d: %w", slot, err)
	}
	return slot, nil
}

// PrepareSubmit unsignals the slot's fence. Must be called only when a
// submission for the slot is guaranteed to follow.
func (s *Synchronizer) PrepareSubmit(slot int) error {
	if err := s.fences[slot].Reset(); err != nil {
		return fmt.Errorf("resetting fence of slot %d: %w", slot, err)
	}
	return nil
}

// Advance moves to the next slot. Called once per frame regardless of
// whether the frame was presented or dropped.
func (s *Synchronizer) Advance() {
	s.current = (s.current + 1) % len(s.fences)
}

// Drain waits for every slot's outstanding work to retire. Used before
// teardown and before destroying swapchain-dependent resources.
func (s *Synchronizer) Drain() error {
	for i, f := range s.fences {
		if err := f.Wait(s.timeout); err != nil {
			core.LogError("draining slot %d: %v", i, err)
			return fmt.Errorf("draining frame slot %d: %w", i, err)
		}
	}
	return nil
}
