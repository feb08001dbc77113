package filters

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoalescerBatchesBurst(t *testing.T) {
	var calls atomic.Int32
	c := NewCoalescer(20*time.Millisecond, func() { calls.Add(1) })
	defer c.Stop()

	for i := 0; i < 10; i++ {
		c.Trigger()
	}
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Nothing else fires afterwards.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	c.Trigger()
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestCoalescerFlush(t *testing.T) {
	var calls atomic.Int32
	c := NewCoalescer(time.Hour, func() { calls.Add(1) })
	defer c.Stop()

	c.Flush()
	assert.Equal(t, int32(0), calls.Load(), "flush with nothing pending is a no-op")

	c.Trigger()
	c.Trigger()
	c.Flush()
	assert.Equal(t, int32(1), calls.Load())
	c.Flush()
	assert.Equal(t, int32(1), calls.Load())
}

func TestCoalescerStop(t *testing.T) {
	var calls atomic.Int32
	c := NewCoalescer(10*time.Millisecond, func() { calls.Add(1) })
	c.Trigger()
	c.Stop()
	c.Trigger()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestAggregatorWithCoalescerSchedulesOneReload(t *testing.T) {
	var reloads atomic.Int32
	c := NewCoalescer(time.Hour, func() { reloads.Add(1) })
	defer c.Stop()

	a := NewAggregator()
	a.Subscribe(func(State) { c.Trigger() })

	a.SetSearch("a")
	a.SetSearch("ab")
	_ = a.SetTab(TabOpen)
	_ = a.SetQuickFilter("nonprofit", true)
	c.Flush()

	assert.Equal(t, int32(1), reloads.Load())
}
