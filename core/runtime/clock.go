package runtime

import (
	"sync"
	"time"
)

// Clock is the slot oracle. Implementations must never return a smaller slot
// than a previous call.
type Clock interface {
	Slot() uint64
}

// ManualClock is advanced explicitly. Tools and tests use it to replay
// accruals at chosen slots.
type ManualClock struct {
	mu   sync.Mutex
	slot uint64
}

func NewManualClock(slot uint64) *ManualClock {
	return &ManualClock{slot: slot}
}

func (c *ManualClock) Slot() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot
}

// Set moves the clock to slot. Moving backwards is ignored.
func (c *ManualClock) Set(slot uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot > c.slot {
		c.slot = slot
	}
}

// Advance moves the clock forward by n slots.
func (c *ManualClock) Advance(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot += n
}

// WallClock derives the slot from elapsed wall time since genesis.
type WallClock struct {
	genesis      time.Time
	slotDuration time.Duration
	nowFn        func() time.Time

	mu   sync.Mutex
	last uint64
}

func NewWallClock(genesis time.Time, slotDuration time.Duration) *WallClock {
	if slotDuration <= 0 {
		slotDuration = 400 * time.Millisecond
	}
	return &WallClock{genesis: genesis, slotDuration: slotDuration, nowFn: time.Now}
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (c *WallClock) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	c.nowFn = now
}

func (c *WallClock) Slot() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := c.nowFn().Sub(c.genesis)
	if elapsed < 0 {
		return c.last
	}
	slot := uint64(elapsed / c.slotDuration)
	if slot > c.last {
		c.last = slot
	}
	return c.last
}
