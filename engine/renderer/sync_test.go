package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFence is a signaled flag with call counting. Wait never blocks;
// it just reports timeout when unsignaled.
type fakeFence struct {
	signaled bool
	waits    int
	resets   int
}

func newFakeFence() *fakeFence { return &fakeFence{signaled: true} }

func (f *fakeFence) Wait(timeout time.Duration) error {
	f.waits++
	if !f.signaled {
		return ErrSyncTimeout
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.signaled = false
	f.resets++
	return nil
}

func fakeFences(n int) ([]CompletionFence, []*fakeFence) {
	raw := make([]*fakeFence, n)
	fences := make([]CompletionFence, n)
	for i := range raw {
		raw[i] = newFakeFence()
		fences[i] = raw[i]
	}
	return fences, raw
}

func TestNewSynchronizerRejectsZeroSlots(t *testing.T) {
	_, err := NewSynchronizer(nil, time.Second)
	assert.Error(t, err)
}

func TestSynchronizerRoundRobin(t *testing.T) {
	fences, _ := fakeFences(3)
	s, err := NewSynchronizer(fences, time.Second)
	require.NoError(t, err)

	var got []int
	for i := 0; i < 7; i++ {
		slot, err := s.AcquireSlot()
		require.NoError(t, err)
		got = append(got, slot)
		s.Advance()
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, got)
}

func TestSynchronizerRepeatsSlotUntilAdvanced(t *testing.T) {
	fences, _ := fakeFences(2)
	s, err := NewSynchronizer(fences, time.Second)
	require.NoError(t, err)

	a, err := s.AcquireSlot()
	require.NoError(t, err)
	b, err := s.AcquireSlot()
	require.NoError(t, err)
	assert.Equal(t, a, b, "a dropped frame reuses its slot")
}

func TestSynchronizerAcquireTimesOutOnBusySlot(t *testing.T) {
	fences, raw := fakeFences(2)
	s, err := NewSynchronizer(fences, time.Millisecond)
	require.NoError(t, err)

	raw[0].signaled = false
	_, err = s.AcquireSlot()
	assert.ErrorIs(t, err, ErrSyncTimeout)
}

func TestSynchronizerPrepareSubmitResetsOnlyThatSlot(t *testing.T) {
	fences, raw := fakeFences(2)
	s, err := NewSynchronizer(fences, time.Second)
	require.NoError(t, err)

	require.NoError(t, s.PrepareSubmit(1))
	assert.False(t, raw[1].signaled)
	assert.True(t, raw[0].signaled)
}

func TestSynchronizerDrainWaitsEverySlot(t *testing.T) {
	fences, raw := fakeFences(3)
	s, err := NewSynchronizer(fences, time.Second)
	require.NoError(t, err)

	require.NoError(t, s.Drain())
	for i, f := range raw {
		assert.Equal(t, 1, f.waits, "slot %d", i)
	}
}

func TestSynchronizerDrainReportsStuckSlot(t *testing.T) {
	fences, raw := fakeFences(3)
	s, err := NewSynchronizer(fences, time.Millisecond)
	require.NoError(t, err)

	raw[2].signaled = false
	assert.ErrorIs(t, s.Drain(), ErrSyncTimeout)
}
