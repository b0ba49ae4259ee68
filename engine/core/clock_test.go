package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLastFrameSecsNeedsTwoFrames(t *testing.T) {
	fc := NewFrameClock()
	assert.Equal(t, float32(0), fc.LastFrameSecs())
	assert.Equal(t, float64(0), fc.FPS())
}

func TestTickMeasuresElapsedTime(t *testing.T) {
	fc := NewFrameClock()
	time.Sleep(10 * time.Millisecond)
	fc.Tick()

	assert.GreaterOrEqual(t, fc.LastFrameSecs(), float32(0.005))
	assert.Greater(t, fc.FPS(), float64(0))
}

func TestRebaseDropsTheGap(t *testing.T) {
	fc := NewFrameClock()
	time.Sleep(100 * time.Millisecond)

	fc.Rebase()
	assert.Equal(t, float32(0), fc.LastFrameSecs(), "rebase empties the window")

	fc.Tick()
	assert.Less(t, fc.LastFrameSecs(), float32(0.1), "the pre-rebase gap is not measured")
}

func TestFPSWindowIsBounded(t *testing.T) {
	fc := NewFrameClock()
	for i := 0; i < 3*fpsWindowSize; i++ {
		fc.Tick()
	}
	assert.Len(t, fc.frameTimes, fpsWindowSize)
}
