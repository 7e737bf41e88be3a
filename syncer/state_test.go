package syncer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCanFetchInFlightExclusion(t *testing.T) {
	clock := newFakeClock()
	s := NewState(DefaultConfig(), clock)

	assert.True(t, s.CanFetch("chat:1", time.Second, false))
	// Same key is busy until MarkDone, force does not override.
	assert.False(t, s.CanFetch("chat:1", time.Second, false))
	assert.False(t, s.CanFetch("chat:1", time.Second, true))
	// Different key is independent.
	assert.True(t, s.CanFetch("bill:1", time.Second, false))

	s.MarkDone("chat:1")

	// Completed too recently without force.
	assert.False(t, s.CanFetch("chat:1", time.Second, false))
	assert.True(t, s.CanFetch("chat:1", time.Second, true))
	s.MarkDone("chat:1")

	clock.Advance(1500 * time.Millisecond)
	assert.True(t, s.CanFetch("chat:1", time.Second, false))
}

func TestCanFetchConcurrent(t *testing.T) {
	s := NewState(DefaultConfig(), newFakeClock())

	var wg sync.WaitGroup
	granted := make(chan struct{}, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.CanFetch("chat:7", time.Second, true) {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for range granted {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestRecentlySentTTL(t *testing.T) {
	clock := newFakeClock()
	s := NewState(DefaultConfig(), clock)

	s.NoteSend("temp-a")
	assert.True(t, s.RecentlySent("temp-a"))

	clock.Advance(2 * time.Second)
	assert.True(t, s.RecentlySent("temp-a"))

	clock.Advance(2 * time.Second)
	assert.False(t, s.RecentlySent("temp-a"))
}

func TestConfirmSendKeepsTimestamp(t *testing.T) {
	clock := newFakeClock()
	s := NewState(DefaultConfig(), clock)

	s.NoteSend("temp-a")
	clock.Advance(2 * time.Second)
	s.ConfirmSend("temp-a", "41")

	assert.False(t, s.RecentlySent("temp-a"))
	assert.True(t, s.RecentlySent("41"))

	// The window runs from the original send, not the confirmation.
	clock.Advance(1500 * time.Millisecond)
	assert.False(t, s.RecentlySent("41"))
}

func TestRecentSentCapEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecentSentCap = 3
	cfg.RecentSentTTL = time.Hour
	clock := newFakeClock()
	s := NewState(cfg, clock)

	s.NoteSend("a")
	clock.Advance(time.Millisecond)
	s.NoteSend("b")
	clock.Advance(time.Millisecond)
	s.NoteSend("c")
	clock.Advance(time.Millisecond)
	s.NoteSend("d")

	assert.False(t, s.RecentlySent("a"))
	assert.True(t, s.RecentlySent("b"))
	assert.True(t, s.RecentlySent("c"))
	assert.True(t, s.RecentlySent("d"))
}

func TestSinceLastSend(t *testing.T) {
	clock := newFakeClock()
	s := NewState(DefaultConfig(), clock)

	assert.Greater(t, s.SinceLastSend(), time.Hour)

	s.NoteSend("temp-a")
	clock.Advance(700 * time.Millisecond)
	assert.Equal(t, 700*time.Millisecond, s.SinceLastSend())
}
