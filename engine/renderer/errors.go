package renderer

import "errors"

var (
	// ErrSurfaceOutOfDate means the presentation surface no longer matches
	// the swapchain. The frame in progress is dropped and the swapchain
	// recreated before the next frame.
	ErrSurfaceOutOfDate = errors.New("surface out of date")

	// ErrSurfaceSuboptimal means presentation still works but the
	// swapchain should be recreated at the next opportunity.
	ErrSurfaceSuboptimal = errors.New("surface suboptimal")

	// ErrSyncTimeout means a bounded wait on a frame fence expired. The
	// device is considered faulted; there is no recovery path.
	ErrSyncTimeout = errors.New("synchronization wait timed out")

	// ErrDeviceLost is the unrecoverable device fault.
	ErrDeviceLost = errors.New("device lost")
)
