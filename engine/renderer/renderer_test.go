package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records the call sequence and signals the slot fence on
// submit, mimicking instant GPU retirement unless retire is disabled.
type fakeBackend struct {
	fences []*fakeFence
	calls  []string

	retireOnSubmit bool
	acquireErrs    []error
	presentErrs    []error
	recreates      int
	shutdowns      int
}

func newFakeBackend(slots int) *fakeBackend {
	b := &fakeBackend{retireOnSubmit: true}
	for i := 0; i < slots; i++ {
		b.fences = append(b.fences, newFakeFence())
	}
	return b
}

func (b *fakeBackend) SlotFences() []CompletionFence {
	out := make([]CompletionFence, len(b.fences))
	for i, f := range b.fences {
		out[i] = f
	}
	return out
}

func (b *fakeBackend) popErr(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (b *fakeBackend) AcquireImage(slot int) (uint32, error) {
	b.calls = append(b.calls, "acquire")
	return uint32(slot), b.popErr(&b.acquireErrs)
}

func (b *fakeBackend) Record(slot int, imageIndex uint32, dt float32) error {
	b.calls = append(b.calls, "record")
	return nil
}

func (b *fakeBackend) Submit(slot int, imageIndex uint32) error {
	b.calls = append(b.calls, "submit")
	if b.retireOnSubmit {
		b.fences[slot].signaled = true
	}
	return nil
}

func (b *fakeBackend) Present(slot int, imageIndex uint32) error {
	b.calls = append(b.calls, "present")
	return b.popErr(&b.presentErrs)
}

func (b *fakeBackend) Recreate(width, height uint32) error {
	b.calls = append(b.calls, "recreate")
	b.recreates++
	return nil
}

func (b *fakeBackend) Shutdown() {
	b.shutdowns++
}

func newTestLoop(t *testing.T, backend *fakeBackend) *Loop {
	t.Helper()
	sync, err := NewSynchronizer(backend.SlotFences(), 10*time.Millisecond)
	require.NoError(t, err)
	return NewLoop(backend, sync, 1600, 900)
}

func TestDrawFrameHappyPathOrder(t *testing.T) {
	backend := newFakeBackend(2)
	loop := newTestLoop(t, backend)

	require.NoError(t, loop.DrawFrame(1.0/60.0))

	assert.Equal(t, []string{"acquire", "record", "submit", "present"}, backend.calls)
	assert.Equal(t, StateIdle, loop.State())
}

func TestDrawFrameResetsFenceOnlyBeforeSubmit(t *testing.T) {
	backend := newFakeBackend(1)
	loop := newTestLoop(t, backend)

	require.NoError(t, loop.DrawFrame(1.0/60.0))

	assert.Equal(t, 1, backend.fences[0].resets)
	assert.True(t, backend.fences[0].signaled, "submit retires the frame")
}

func TestDrawFrameBoundsFramesInFlight(t *testing.T) {
	backend := newFakeBackend(2)
	backend.retireOnSubmit = false
	loop := newTestLoop(t, backend)

	// Two frames fit in flight; the third must block on slot 0 and the
	// bounded wait expires because nothing ever retires.
	require.NoError(t, loop.DrawFrame(0.016))
	require.NoError(t, loop.DrawFrame(0.016))
	err := loop.DrawFrame(0.016)
	assert.ErrorIs(t, err, ErrSyncTimeout)
}

func TestDrawFrameAcquireOutOfDateDropsFrameAndRecreates(t *testing.T) {
	backend := newFakeBackend(2)
	backend.acquireErrs = []error{ErrSurfaceOutOfDate}
	loop := newTestLoop(t, backend)

	require.NoError(t, loop.DrawFrame(0.016))

	assert.Equal(t, 1, backend.recreates)
	assert.Equal(t, []string{"acquire", "recreate"}, backend.calls, "dropped frame records and submits nothing")
	assert.Equal(t, 0, backend.fences[0].resets, "dropped frame leaves the fence signaled")
	assert.Equal(t, StateIdle, loop.State())

	// The loop resumes normally afterwards.
	backend.calls = nil
	require.NoError(t, loop.DrawFrame(0.016))
	assert.Equal(t, []string{"acquire", "record", "submit", "present"}, backend.calls)
}

func TestDrawFrameAcquireTimeoutIsFatal(t *testing.T) {
	backend := newFakeBackend(2)
	backend.acquireErrs = []error{ErrSyncTimeout}
	loop := newTestLoop(t, backend)

	err := loop.DrawFrame(0.016)
	assert.ErrorIs(t, err, ErrSyncTimeout)
	assert.Equal(t, []string{"acquire"}, backend.calls, "a hung acquire aborts the frame")
	assert.Equal(t, 0, backend.recreates, "a timeout is not a stale surface")
}

func TestDrawFramePresentOutOfDateRecreatesAfterSubmit(t *testing.T) {
	backend := newFakeBackend(2)
	backend.presentErrs = []error{ErrSurfaceOutOfDate}
	loop := newTestLoop(t, backend)

	require.NoError(t, loop.DrawFrame(0.016))

	assert.Equal(t, []string{"acquire", "record", "submit", "present", "recreate"}, backend.calls)
	assert.Equal(t, 1, backend.recreates)
	assert.Equal(t, StateIdle, loop.State())
}

func TestDrawFrameAcquireSuboptimalRendersThenRecreates(t *testing.T) {
	backend := newFakeBackend(2)
	backend.acquireErrs = []error{ErrSurfaceSuboptimal}
	loop := newTestLoop(t, backend)

	require.NoError(t, loop.DrawFrame(0.016))
	assert.Equal(t, []string{"acquire", "record", "submit", "present"}, backend.calls,
		"suboptimal image still renders this frame")
	assert.Equal(t, 0, backend.recreates)

	require.NoError(t, loop.DrawFrame(0.016))
	assert.Equal(t, 1, backend.recreates, "rebuild happens before the next frame")
}

func TestDrawFrameResizeRecreatesBeforeNextFrame(t *testing.T) {
	backend := newFakeBackend(2)
	loop := newTestLoop(t, backend)

	require.NoError(t, loop.DrawFrame(0.016))
	loop.NotifyResize(800, 600)
	backend.calls = nil

	require.NoError(t, loop.DrawFrame(0.016))
	assert.Equal(t, []string{"recreate", "acquire", "record", "submit", "present"}, backend.calls)
}

func TestDrawFrameSkipsWhileMinimized(t *testing.T) {
	backend := newFakeBackend(2)
	loop := newTestLoop(t, backend)

	loop.NotifyResize(0, 0)
	require.NoError(t, loop.DrawFrame(0.016))
	require.NoError(t, loop.DrawFrame(0.016))
	assert.Empty(t, backend.calls)

	loop.NotifyResize(1024, 768)
	require.NoError(t, loop.DrawFrame(0.016))
	assert.Equal(t, []string{"recreate", "acquire", "record", "submit", "present"}, backend.calls)
}

func TestShutdownDrainsAndTearsDownOnce(t *testing.T) {
	backend := newFakeBackend(2)
	loop := newTestLoop(t, backend)

	require.NoError(t, loop.DrawFrame(0.016))
	require.NoError(t, loop.Shutdown())
	assert.Equal(t, 1, backend.shutdowns)

	require.NoError(t, loop.Shutdown())
	assert.Equal(t, 1, backend.shutdowns, "second shutdown is a no-op")

	assert.Error(t, loop.DrawFrame(0.016), "drawing after shutdown fails")
}

func TestShutdownProceedsPastStuckFence(t *testing.T) {
	backend := newFakeBackend(2)
	loop := newTestLoop(t, backend)
	backend.fences[1].signaled = false

	err := loop.Shutdown()
	assert.ErrorIs(t, err, ErrSyncTimeout)
	assert.Equal(t, 1, backend.shutdowns, "teardown still runs on a faulted device")
}
