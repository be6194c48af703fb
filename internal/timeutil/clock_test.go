package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock(t *testing.T) {
	t.Parallel()
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, clock.Since(before.Add(-time.Second)), time.Second)

	ticker := clock.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire")
	}
}

func TestMockClockAdvanceFiresTicker(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	ticker := clock.NewTicker(10 * time.Millisecond)

	clock.Advance(5 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired early")
	default:
	}

	clock.Advance(5 * time.Millisecond)
	select {
	case got := <-ticker.C():
		assert.Equal(t, start.Add(10*time.Millisecond), got)
	default:
		t.Fatal("ticker did not fire")
	}

	ticker.Stop()
	clock.Advance(time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
	assert.Equal(t, time.Second+10*time.Millisecond, clock.Since(start))
}

func TestMockTickerDropsWhenReceiverBehind(t *testing.T) {
	t.Parallel()
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Millisecond)
	for i := 0; i < 5; i++ {
		clock.Advance(time.Millisecond)
	}
	require.Len(t, ticker.(*MockTicker).ch, 1)
}

func TestStopwatchLap(t *testing.T) {
	t.Parallel()
	clock := NewMockClock(time.Unix(100, 0))
	sw := NewStopwatch(clock)
	clock.Advance(15 * time.Millisecond)
	assert.Equal(t, 15*time.Millisecond, sw.Lap())
	assert.Equal(t, time.Duration(0), sw.Lap())
	clock.Advance(time.Second)
	assert.Equal(t, time.Second, sw.Lap())
}
