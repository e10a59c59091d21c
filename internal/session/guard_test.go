package session

import (
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagepro/internal/activity"
	"garagepro/internal/idle"
	"garagepro/internal/idle/idletest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var epoch = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func mountTest(t *testing.T, timeout time.Duration, onTimeout func()) (*Guard, *activity.Bus, *idletest.Clock) {
	t.Helper()
	clock := idletest.NewClock(epoch)
	bus := activity.NewBus()
	g, err := Mount(GuardConfig{Timeout: timeout, Clock: clock, Logger: quietLogger()}, bus, onTimeout)
	require.NoError(t, err)
	return g, bus, clock
}

func TestGuardFiresAfterQuietPeriod(t *testing.T) {
	var fired int32
	g, _, clock := mountTest(t, 1000*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	assert.Equal(t, idle.StateArmed, g.State())
	assert.Equal(t, epoch.Add(time.Second), g.Deadline())

	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))

	clock.Advance(time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.Equal(t, idle.StateFired, g.State())
}

func TestGuardActivityPostponesTimeout(t *testing.T) {
	var firedAt time.Time
	var clock *idletest.Clock
	_, bus, clock := mountTest(t, 1000*time.Millisecond, func() { firedAt = clock.Now() })

	clock.Advance(500 * time.Millisecond)
	bus.Publish(activity.Signal{Kind: activity.KeyPress})

	clock.Advance(500 * time.Millisecond)
	assert.True(t, firedAt.IsZero(), "fired at the original deadline")

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, epoch.Add(1500*time.Millisecond), firedAt)
}

func TestGuardEveryKindCountsAsActivity(t *testing.T) {
	var fired int32
	_, bus, clock := mountTest(t, time.Second, func() { atomic.AddInt32(&fired, 1) })

	for _, k := range activity.DefaultKinds {
		clock.Advance(900 * time.Millisecond)
		bus.Publish(activity.Signal{Kind: k})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	assert.Equal(t, 1, clock.Pending())
}

func TestGuardUnmountCancelsEverything(t *testing.T) {
	var fired int32
	g, bus, clock := mountTest(t, time.Second, func() { atomic.AddInt32(&fired, 1) })
	require.Equal(t, len(activity.DefaultKinds), bus.Subscribers())

	g.Unmount()
	g.Unmount()

	assert.Equal(t, 0, bus.Subscribers())
	assert.Equal(t, 0, clock.Pending())
	assert.Equal(t, idle.StateIdle, g.State())

	bus.Publish(activity.Signal{Kind: activity.Scroll})
	clock.Advance(time.Hour)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	assert.Equal(t, 0, clock.Pending(), "activity after unmount must not re-arm")
}

func TestGuardCallbackMayUnmount(t *testing.T) {
	var g *Guard
	var bus *activity.Bus
	g, bus, clock := mountTest(t, time.Second, func() { g.Unmount() })
	clock.Advance(time.Second)
	assert.Equal(t, 0, bus.Subscribers())
	assert.Equal(t, idle.StateFired, g.State())
}

func TestMountRejectsInvalidTimeout(t *testing.T) {
	bus := activity.NewBus()
	_, err := Mount(GuardConfig{Timeout: 0}, bus, func() {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, idle.ErrInvalidConfiguration))
	assert.Equal(t, 0, bus.Subscribers(), "failed mount must not leave subscriptions")
}
