package core

import "time"

// Number of frame timestamps kept for the rolling FPS estimate.
const fpsWindowSize = 100

// FrameClock tracks per-frame elapsed time and a rolling FPS average.
// Tick must be called exactly once per frame, before reading LastFrameSecs.
type FrameClock struct {
	frameTimes []time.Time
}

func NewFrameClock() *FrameClock {
	fc := &FrameClock{
		frameTimes: make([]time.Time, 0, fpsWindowSize),
	}
	fc.frameTimes = append(fc.frameTimes, time.Now())
	return fc
}

func (fc *FrameClock) Tick() {
	if len(fc.frameTimes) == fpsWindowSize {
		fc.frameTimes = fc.frameTimes[1:]
	}
	fc.frameTimes = append(fc.frameTimes, time.Now())
}

// Rebase clears the window and restarts timing from now, so a long gap
// (initialization, a blocking dialog) is not measured as a frame.
func (fc *FrameClock) Rebase() {
	fc.frameTimes = fc.frameTimes[:0]
	fc.frameTimes = append(fc.frameTimes, time.Now())
}

// LastFrameSecs returns the duration of the most recent frame in seconds.
// Returns 0 until two frames have been observed.
func (fc *FrameClock) LastFrameSecs() float32 {
	if len(fc.frameTimes) < 2 {
		return 0.0
	}
	last := fc.frameTimes[len(fc.frameTimes)-1]
	secondLast := fc.frameTimes[len(fc.frameTimes)-2]
	return float32(last.Sub(secondLast).Seconds())
}

// FPS returns the rolling average over the kept window.
func (fc *FrameClock) FPS() float64 {
	if len(fc.frameTimes) < 2 {
		return 0.0
	}
	elapsed := fc.frameTimes[len(fc.frameTimes)-1].Sub(fc.frameTimes[0])
	if elapsed <= 0 {
		return 0.0
	}
	return float64(len(fc.frameTimes)-1) / elapsed.Seconds()
}
